// Package appstate holds the session and profile a live editing session is
// working with, and tells subscribers when either one changes.
package appstate

import (
	"reflect"
	"sync"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// Snapshot is what subscribers and selectors see. Both fields may be nil.
type Snapshot struct {
	Session *models.Session
	Profile *models.Profile
}

// Store is a small observable container. Writers replace whole values; readers
// get copies.
type Store struct {
	mu      sync.RWMutex
	session *models.Session
	profile *models.Profile

	nextID int
	subs   map[int]func(Snapshot)
}

// New returns an empty store.
func New() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns copies of the current values.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Profile: s.profile.Clone()}
	if s.session != nil {
		sess := *s.session
		snap.Session = &sess
	}
	return snap
}

// Profile is a shortcut for Snapshot().Profile.
func (s *Store) Profile() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Session is a shortcut for Snapshot().Session.
func (s *Store) Session() *models.Session {
	return s.Snapshot().Session
}

// SetSession replaces the session. Subscribers run only if it actually changed.
func (s *Store) SetSession(sess *models.Session) {
	s.mu.Lock()
	if reflect.DeepEqual(s.session, sess) {
		s.mu.Unlock()
		return
	}
	if sess != nil {
		cp := *sess
		sess = &cp
	}
	s.session = sess
	s.notifyAndUnlock()
}

// SetProfile replaces the profile. Subscribers run only if it actually changed.
func (s *Store) SetProfile(p *models.Profile) {
	s.mu.Lock()
	if reflect.DeepEqual(s.profile, p) {
		s.mu.Unlock()
		return
	}
	s.profile = p.Clone()
	s.notifyAndUnlock()
}

// Clear drops both values, e.g. on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.session == nil && s.profile == nil {
		s.mu.Unlock()
		return
	}
	s.session, s.profile = nil, nil
	s.notifyAndUnlock()
}

func (s *Store) notifyAndUnlock() {
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Subscribe registers fn for change notifications and returns the function
// that removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Select derives a value from the store and calls onChange whenever the
// derived value changes. The current value is delivered immediately.
func Select[T comparable](s *Store, sel func(Snapshot) T, onChange func(T)) func() {
	var mu sync.Mutex
	last := sel(s.Snapshot())
	onChange(last)

	return s.Subscribe(func(snap Snapshot) {
		v := sel(snap)
		mu.Lock()
		if v == last {
			mu.Unlock()
			return
		}
		last = v
		mu.Unlock()
		onChange(v)
	})
}
