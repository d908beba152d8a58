// Package session wraps the identity provider: it turns bearer tokens into
// sessions and tells listeners when an account signs in or out.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier is one identity provider.
type Verifier interface {
	// Verify checks an ID token and returns the session it carries.
	Verify(ctx context.Context, token string) (*models.Session, error)
	// Revoke invalidates every token issued to the account so far.
	Revoke(ctx context.Context, accountID string) error
}

// Change is delivered to OnSessionChange listeners. A nil Session means the
// account signed out.
type Change struct {
	AccountID string
	Session   *models.Session
}

// Adapter normalises sign-in and sign-out over a Verifier.
type Adapter struct {
	verifier Verifier

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Change)
}

func NewAdapter(v Verifier) *Adapter {
	return &Adapter{verifier: v, listeners: make(map[int]func(Change))}
}

// Verify checks a token without notifying anyone; used per request.
func (a *Adapter) Verify(ctx context.Context, token string) (*models.Session, error) {
	const op = "session.Verify"
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	sess, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil || sess.AccountID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return sess, nil
}

// SignIn verifies the token and announces the new session.
func (a *Adapter) SignIn(ctx context.Context, token string) (*models.Session, error) {
	sess, err := a.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	cp := *sess
	a.notify(Change{AccountID: sess.AccountID, Session: &cp})
	return sess, nil
}

// SignOut revokes the account's tokens and announces the sign-out. Listeners
// are notified even if revocation fails, so local state is always dropped.
func (a *Adapter) SignOut(ctx context.Context, accountID string) error {
	const op = "session.SignOut"
	err := a.verifier.Revoke(ctx, accountID)
	a.notify(Change{AccountID: accountID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// OnSessionChange registers fn and returns the function that removes it.
func (a *Adapter) OnSessionChange(fn func(Change)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Adapter) notify(c Change) {
	a.mu.Lock()
	fns := make([]func(Change), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
