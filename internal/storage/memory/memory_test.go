package memory

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
)

func newStore(t *testing.T, dir string) *Store {
	t.Helper()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(dir, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return s
}

func TestStore_UpsertMerges(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	_, err := s.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	p, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		Username: models.StringPtr("alice"),
		Bio:      models.StringPtr("hi"),
	})
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)
	require.False(t, p.CreatedAt.IsZero())
	require.False(t, p.ProfileComplete)

	p, err = s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		BioLinks: models.LinksPtr([]models.BioLink{{ID: "github", URL: "https://github.com/alice"}}),
		Theme:    models.StringPtr("ocean"),
	})
	require.NoError(t, err)
	// earlier fields survive
	require.Equal(t, "alice", p.Username)
	require.Equal(t, "hi", p.Bio)
	require.True(t, p.ProfileComplete)

	byName, err := s.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", byName.AccountID)
}

func TestStore_UsernameUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	_, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{Username: models.StringPtr("alice")})
	require.NoError(t, err)

	_, err = s.UpsertProfileFields(ctx, "u2", models.ProfileFields{Username: models.StringPtr("alice")})
	require.ErrorIs(t, err, storage.ErrUsernameTaken)

	// re-saving your own name is fine
	_, err = s.UpsertProfileFields(ctx, "u1", models.ProfileFields{Username: models.StringPtr("alice")})
	require.NoError(t, err)

	// renaming frees the old name
	_, err = s.UpsertProfileFields(ctx, "u1", models.ProfileFields{Username: models.StringPtr("alicia")})
	require.NoError(t, err)
	taken, err := s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	require.False(t, taken)
	_, err = s.GetProfileByUsername(ctx, "alice")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Concurrent claims of the same name: exactly one wins.
func TestStore_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertProfileFields(ctx, string(rune('a'+i)), models.ProfileFields{Username: models.StringPtr("same")})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestStore_Views(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	require.ErrorIs(t, s.IncrementViewCounter(ctx, "nobody"), storage.ErrNotFound)

	_, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{Username: models.StringPtr("alice")})
	require.NoError(t, err)
	require.NoError(t, s.IncrementViewCounter(ctx, "u1"))
	require.NoError(t, s.IncrementViewCounter(ctx, "u1"))

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, p.Views)
}

func TestStore_SnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newStore(t, dir)
	_, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		Username: models.StringPtr("alice"),
		BioLinks: models.LinksPtr([]models.BioLink{{ID: "x", URL: "https://x.com/a"}, {ID: "github", URL: "https://github.com/a"}}),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	reopened := newStore(t, dir)
	p, err := reopened.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []models.BioLink{{ID: "x", URL: "https://x.com/a"}, {ID: "github", URL: "https://github.com/a"}}, p.BioLinks)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	p, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		BioLinks: models.LinksPtr([]models.BioLink{{ID: "x", URL: "https://x.com/a"}}),
	})
	require.NoError(t, err)
	p.BioLinks[0].URL = "changed"

	again, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "https://x.com/a", again.BioLinks[0].URL)
}

// breakSnapshotDir replaces the data directory with a plain file so every
// later snapshot write fails.
func breakSnapshotDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))
}

func TestStore_FailedSnapshotLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newStore(t, dir)

	_, err := s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		Username: models.StringPtr("alice"),
		Bio:      models.StringPtr("hi"),
	})
	require.NoError(t, err)
	require.NoError(t, s.IncrementViewCounter(ctx, "u1"))

	breakSnapshotDir(t, dir)

	_, err = s.UpsertProfileFields(ctx, "u1", models.ProfileFields{
		Username: models.StringPtr("alicia"),
		Bio:      models.StringPtr("changed"),
	})
	require.ErrorIs(t, err, storage.ErrUnavailable)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, "hi", p.Bio)

	taken, err := s.IsUsernameTaken(ctx, "alicia")
	require.NoError(t, err)
	require.False(t, taken)
	taken, err = s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	require.True(t, taken)

	// a new account is not created either
	_, err = s.UpsertProfileFields(ctx, "u2", models.ProfileFields{Username: models.StringPtr("bob")})
	require.ErrorIs(t, err, storage.ErrUnavailable)
	_, err = s.GetProfile(ctx, "u2")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetProfileByUsername(ctx, "bob")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, s.IncrementViewCounter(ctx, "u1"), storage.ErrUnavailable)
	p, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Views)
}

func TestNew_LogsSnapshotLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	core, logs := observer.New(zapcore.InfoLevel)
	log := logger.FromZap(zap.New(core))

	s, err := New(dir, WithLogger(log))
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("no profile snapshot yet").Len())

	_, err = s.UpsertProfileFields(ctx, "u1", models.ProfileFields{Username: models.StringPtr("alice")})
	require.NoError(t, err)

	_, err = New(dir, WithLogger(log))
	require.NoError(t, err)
	loaded := logs.FilterMessage("loaded profile snapshot").All()
	require.Len(t, loaded, 1)
	require.EqualValues(t, 1, loaded[0].ContextMap()["profiles"])
}
