package render

import (
	"context"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// ViewCounter records one public view. Failures are the caller's to log.
type ViewCounter interface {
	CountView(ctx context.Context, p *models.Profile) error
}

type counterRepo interface {
	IncrementViewCounter(ctx context.Context, accountID string) error
}

// DirectCounter increments the counter in the repository inline.
type DirectCounter struct {
	Repo counterRepo
}

func (c DirectCounter) CountView(ctx context.Context, p *models.Profile) error {
	return c.Repo.IncrementViewCounter(ctx, p.AccountID)
}

// EventCounter publishes profile.viewed for the views worker to apply.
type EventCounter struct {
	Publisher events.Publisher
}

func (c EventCounter) CountView(ctx context.Context, p *models.Profile) error {
	return c.Publisher.PublishProfileEvent(ctx, events.NewProfileEvent(events.TypeProfileViewed, p.AccountID, p.Username))
}

// NewViewCounter publishes events when the publisher is live and falls back
// to direct increments otherwise.
func NewViewCounter(repo counterRepo, pub events.Publisher) ViewCounter {
	if pub != nil && pub.Enabled() {
		return EventCounter{Publisher: pub}
	}
	return DirectCounter{Repo: repo}
}
