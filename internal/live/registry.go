package live

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/metrics"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/session"
)

var ErrSessionNotFound = errors.New("live session not found")

// Registry tracks open sessions by id and by account.
type Registry struct {
	backend Backend
	opts    Options
	metrics *metrics.Metrics
	logger  *logger.Logger

	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	byAccount map[string]map[uuid.UUID]*Session
}

func NewRegistry(backend Backend, opts Options, m *metrics.Metrics, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		backend:   backend,
		opts:      opts.withDefaults(),
		metrics:   m,
		logger:    log.With("component", "LiveRegistry"),
		sessions:  make(map[uuid.UUID]*Session),
		byAccount: make(map[string]map[uuid.UUID]*Session),
	}
}

// Open loads the caller's profile and registers a new session for it.
func (r *Registry) Open(ctx context.Context, sess *models.Session) (*Session, error) {
	s, err := newSession(ctx, r.backend, sess, r.opts, r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	acct, ok := r.byAccount[s.AccountID]
	if !ok {
		acct = make(map[uuid.UUID]*Session)
		r.byAccount[s.AccountID] = acct
	}
	acct[s.ID] = s
	r.mu.Unlock()

	r.metrics.LiveSessionOpened()
	r.logger.Debug("live session opened", "live_session", s.ID, "account_id", s.AccountID)
	return s, nil
}

// Get returns the session with this id if it belongs to accountID. Sessions
// of other accounts are reported as missing.
func (r *Registry) Get(id, accountID string) (*Session, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	r.mu.RLock()
	s, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok || s.AccountID != accountID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends and forgets one session.
func (r *Registry) Close(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s.ID]
	if ok {
		delete(r.sessions, s.ID)
		if acct := r.byAccount[s.AccountID]; acct != nil {
			delete(acct, s.ID)
			if len(acct) == 0 {
				delete(r.byAccount, s.AccountID)
			}
		}
	}
	r.mu.Unlock()

	s.Close()
	if ok {
		r.metrics.LiveSessionClosed()
	}
}

// CloseAccount ends every session of an account and returns how many there were.
func (r *Registry) CloseAccount(accountID string) int {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.byAccount[accountID]))
	for _, s := range r.byAccount[accountID] {
		list = append(list, s)
	}
	r.mu.RUnlock()

	for _, s := range list {
		s.SignOut()
		r.Close(s)
	}
	return len(list)
}

// CloseAll ends every session, on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	for _, s := range list {
		r.Close(s)
	}
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnSessionChange closes an account's sessions when it signs out. Register
// it with session.Adapter.OnSessionChange.
func (r *Registry) OnSessionChange(c session.Change) {
	if c.Session != nil {
		return
	}
	if n := r.CloseAccount(c.AccountID); n > 0 {
		r.logger.Info("closed live sessions on sign-out", "account_id", c.AccountID, "count", n)
	}
}
