package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
)

type viewCounterRepo interface {
	IncrementViewCounter(ctx context.Context, accountID string) error
}

// viewHandlers applies profile.viewed events to the store. A view for an
// account that no longer exists is dropped; store failures are retried.
func viewHandlers(repo viewCounterRepo, log *logger.Logger) map[events.EventType]events.Handler {
	return map[events.EventType]events.Handler{
		events.TypeProfileViewed: func(ctx context.Context, ev *events.ProfileEvent) error {
			const op = "views-worker.profileViewed"

			err := repo.IncrementViewCounter(ctx, ev.AccountID)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				log.Warn("view for unknown account dropped", "account_id", ev.AccountID, "event_id", ev.EventID)
				return nil
			case err != nil:
				return fmt.Errorf("%s: %w", op, err)
			}
			log.Debug("view counted", "account_id", ev.AccountID, "username", ev.Username)
			return nil
		},
	}
}
