// Package memory is a process-local profile repository, optionally
// snapshotted to disk through storage.JSONStore.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
)

const snapshotFile = "profiles.json"

// Store keeps profiles keyed by account id plus a username index. Username
// check and write happen under one lock, so two accounts can never end up
// with the same name.
type Store struct {
	mu         sync.RWMutex
	profiles   map[string]*models.Profile
	byUsername map[string]string

	snap *storage.JSONStore
	now  func() time.Time
	log  *logger.Logger
}

type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for snapshot loading.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store. With a non-empty dataDir every write is
// snapshotted to dataDir/profiles.json and the snapshot is loaded on start.
func New(dataDir string, opts ...Option) (*Store, error) {
	const op = "storage.memory.New"

	s := &Store{
		profiles:   make(map[string]*models.Profile),
		byUsername: make(map[string]string),
		now:        time.Now,
		log:        logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if dataDir == "" {
		return s, nil
	}

	js, err := storage.NewJSONStore(dataDir, snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var loaded []*models.Profile
	found, err := js.Load(&loaded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range loaded {
		if p == nil || p.AccountID == "" {
			continue
		}
		s.profiles[p.AccountID] = p
		if p.Username != "" {
			s.byUsername[p.Username] = p.AccountID
		}
	}
	s.snap = js
	if found {
		s.log.Info("loaded profile snapshot", "path", js.Path(), "profiles", len(s.profiles))
	} else {
		s.log.Info("no profile snapshot yet", "path", js.Path())
	}
	return s, nil
}

func (s *Store) GetProfile(_ context.Context, accountID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[accountID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) GetProfileByUsername(_ context.Context, username string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.profiles[id].Clone(), nil
}

func (s *Store) UpsertProfileFields(_ context.Context, accountID string, fields models.ProfileFields) (*models.Profile, error) {
	const op = "storage.memory.UpsertProfileFields"

	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.Username != nil && *fields.Username != "" {
		if owner, ok := s.byUsername[*fields.Username]; ok && owner != accountID {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}
	}

	now := s.now().UTC()
	var p *models.Profile
	if cur, ok := s.profiles[accountID]; ok {
		p = cur.Clone()
	} else {
		p = &models.Profile{AccountID: accountID, CreatedAt: now}
	}
	oldUsername := p.Username

	fields.Apply(p)
	p.UpdatedAt = now
	p.ProfileComplete = onboarding.IsComplete(p)

	// nothing becomes visible until the snapshot is written
	if err := s.persistLocked(p); err != nil {
		return nil, storage.Unavailable(op, err)
	}

	s.profiles[accountID] = p
	if p.Username != oldUsername {
		if oldUsername != "" {
			delete(s.byUsername, oldUsername)
		}
		if p.Username != "" {
			s.byUsername[p.Username] = accountID
		}
	}
	return p.Clone(), nil
}

func (s *Store) IsUsernameTaken(_ context.Context, candidate string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[candidate]
	return ok, nil
}

func (s *Store) IncrementViewCounter(_ context.Context, accountID string) error {
	const op = "storage.memory.IncrementViewCounter"

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[accountID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	next := p.Clone()
	next.Views++
	if err := s.persistLocked(next); err != nil {
		return storage.Unavailable(op, err)
	}
	s.profiles[accountID] = next
	return nil
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(nil)
}

// persistLocked snapshots the store with staged (if any) in place of the
// stored profile of the same account.
func (s *Store) persistLocked(staged *models.Profile) error {
	if s.snap == nil {
		return nil
	}
	out := make([]*models.Profile, 0, len(s.profiles)+1)
	for id, p := range s.profiles {
		if staged != nil && id == staged.AccountID {
			continue
		}
		out = append(out, p)
	}
	if staged != nil {
		out = append(out, staged)
	}
	return s.snap.Save(out)
}

var _ storage.Repository = (*Store)(nil)
