// Package storage defines the profile repository contract shared by the
// in-memory and Mongo backends.
package storage

//go:generate mockgen -source=./storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

var (
	// ErrNotFound means no profile exists for the given key.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken means another account already owns the username.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUnavailable means the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Repository is the document store as the rest of the service sees it: one
// profile document per account, merged piecemeal.
type Repository interface {
	// GetProfile returns the account's profile or ErrNotFound.
	GetProfile(ctx context.Context, accountID string) (*models.Profile, error)

	// GetProfileByUsername looks a profile up by its (already normalised)
	// username. ErrNotFound when nobody owns it.
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)

	// UpsertProfileFields merges fields into the account's document, creating
	// it if needed. Fields absent from the update are left as they are. The
	// document's profileComplete cache and updatedAt are refreshed. Returns
	// the stored document. ErrUsernameTaken if the username belongs to
	// another account.
	UpsertProfileFields(ctx context.Context, accountID string, fields models.ProfileFields) (*models.Profile, error)

	// IsUsernameTaken is an exact-match existence check across all profiles.
	// It is advisory; the write itself enforces uniqueness.
	IsUsernameTaken(ctx context.Context, candidate string) (bool, error)

	// IncrementViewCounter bumps the account's view count by one.
	IncrementViewCounter(ctx context.Context, accountID string) error

	// Close releases connections.
	Close(ctx context.Context) error
}

// Unavailable wraps a transport failure so callers can match ErrUnavailable
// while keeping the driver error in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
