package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage/memory"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/mocks"
)

func published() *models.Profile {
	return &models.Profile{
		AccountID:   "acc-1",
		Username:    "ada",
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Bio:         "Analyst of engines",
		BioLinks: []models.BioLink{
			{ID: "github", URL: "https://github.com/ada"},
			{ID: "website", URL: "https://ada.dev"},
		},
		Theme:       "midnight",
		ThemeConfig: models.ThemeConfig{ButtonColor: "#ff0000"},
	}
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]*models.Profile
	sets  int
}

func newMapCache() *mapCache { return &mapCache{items: make(map[string]*models.Profile)} }

func (c *mapCache) Get(_ context.Context, username string) (*models.Profile, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[username]
	return p.Clone(), ok, nil
}

func (c *mapCache) Set(_ context.Context, p *models.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.Username] = p.Clone()
	c.sets++
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, usernames ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range usernames {
		delete(c.items, u)
	}
	return nil
}

func (c *mapCache) Close() error { return nil }

type counterFunc func(ctx context.Context, p *models.Profile) error

func (f counterFunc) CountView(ctx context.Context, p *models.Profile) error { return f(ctx, p) }

func TestBuild(t *testing.T) {
	v := Build(published())

	require.Equal(t, "ada", v.Username)
	require.Equal(t, "midnight", v.Theme)
	require.Equal(t, theme.ComponentList, v.Component)
	require.Equal(t, "#ff0000", v.Style.ButtonColor)
	mid, _ := theme.Lookup("midnight")
	require.Equal(t, mid.Defaults.BackgroundColor, v.Style.BackgroundColor)
	require.Equal(t, []LinkView{
		{Platform: "github", Label: "GitHub", URL: "https://github.com/ada"},
		{Platform: "website", Label: "Website", URL: "https://ada.dev"},
	}, v.Links)
}

func TestBuild_UnknownThemeFallsBack(t *testing.T) {
	p := published()
	p.Theme = "retired-theme"
	v := Build(p)
	require.Equal(t, theme.DefaultKey, v.Theme)

	p.Theme = ""
	require.Equal(t, theme.DefaultKey, Build(p).Theme)
}

func TestBuild_FallbackDisplayName(t *testing.T) {
	p := published()
	p.DisplayName = ""
	require.Equal(t, "@ada", Build(p).DisplayName)
}

func TestRenderer_Render(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New("")
	require.NoError(t, err)
	_, err = store.UpsertProfileFields(ctx, "acc-1", models.ProfileFields{
		Username: models.StringPtr("ada"),
		Bio:      models.StringPtr("hi"),
	})
	require.NoError(t, err)

	r := NewRenderer(store, Options{Counter: DirectCounter{Repo: store}})

	v, err := r.Render(ctx, "ADA")
	require.NoError(t, err)
	require.Equal(t, "ada", v.Username)

	r.Wait()
	p, err := store.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Views)
}

func TestRenderer_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetProfileByUsername(gomock.Any(), "nobody").Return(nil, storage.ErrNotFound)

	r := NewRenderer(repo, Options{})
	_, err := r.Render(context.Background(), "nobody")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// Names that can never be stored do not reach the repository.
	_, err = r.Render(context.Background(), "not a name!")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.Render(context.Background(), "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRenderer_StoreDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetProfileByUsername(gomock.Any(), "ada").Return(nil, storage.Unavailable("op", errors.New("boom")))

	_, err := NewRenderer(repo, Options{}).Render(context.Background(), "ada")
	require.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestRenderer_CacheHitSkipsRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetProfileByUsername(gomock.Any(), "ada").Return(published(), nil).Times(1)

	c := newMapCache()
	r := NewRenderer(repo, Options{Cache: c})

	_, err := r.Render(context.Background(), "ada")
	require.NoError(t, err)
	_, err = r.Render(context.Background(), "ada")
	require.NoError(t, err)
	require.Equal(t, 1, c.sets)
}

func TestRenderer_ViewCountDoesNotBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetProfileByUsername(gomock.Any(), "ada").Return(published(), nil)

	release := make(chan struct{})
	var counted atomic.Int32
	counter := counterFunc(func(ctx context.Context, p *models.Profile) error {
		<-release
		counted.Add(1)
		return errors.New("analytics down")
	})
	r := NewRenderer(repo, Options{Counter: counter})

	done := make(chan error, 1)
	go func() {
		_, err := r.Render(context.Background(), "ada")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("render waited for the view counter")
	}

	close(release)
	r.Wait()
	require.Equal(t, int32(1), counted.Load())
}

func TestRenderer_ViewCountOutlivesRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetProfileByUsername(gomock.Any(), "ada").Return(published(), nil)

	var ctxErr atomic.Value
	counter := counterFunc(func(ctx context.Context, p *models.Profile) error {
		time.Sleep(20 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return nil
	})
	r := NewRenderer(repo, Options{Counter: counter, ViewTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := r.Render(ctx, "ada")
	require.NoError(t, err)
	cancel()

	r.Wait()
	require.Nil(t, ctxErr.Load())
}

func TestRenderer_CollapsesConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	repo := lookupFunc(func(ctx context.Context, name string) (*models.Profile, error) {
		calls.Add(1)
		<-gate
		return published(), nil
	})
	r := NewRenderer(repo, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Lookup(context.Background(), "ada")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), calls.Load())
}

// The first caller giving up must not fail the others waiting on the same read.
func TestRenderer_SharedLookupSurvivesFirstCallerCancel(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	var sawCancel atomic.Bool
	repo := lookupFunc(func(ctx context.Context, name string) (*models.Profile, error) {
		close(started)
		select {
		case <-gate:
			return published(), nil
		case <-ctx.Done():
			sawCancel.Store(true)
			return nil, ctx.Err()
		}
	})
	r := NewRenderer(repo, Options{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Lookup(firstCtx, "ada")
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := r.Lookup(context.Background(), "ada")
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate)
	require.NoError(t, <-secondErr)
	require.False(t, sawCancel.Load())
}

type lookupFunc func(ctx context.Context, name string) (*models.Profile, error)

func (f lookupFunc) GetProfileByUsername(ctx context.Context, name string) (*models.Profile, error) {
	return f(ctx, name)
}

func TestNewViewCounter(t *testing.T) {
	store, err := memory.New("")
	require.NoError(t, err)

	pub := events.NewMockPublisher()
	require.IsType(t, EventCounter{}, NewViewCounter(store, pub))

	pub.Disable = true
	require.IsType(t, DirectCounter{}, NewViewCounter(store, pub))
	require.IsType(t, DirectCounter{}, NewViewCounter(store, nil))
}

func TestEventCounter(t *testing.T) {
	pub := events.NewMockPublisher()
	require.NoError(t, EventCounter{Publisher: pub}.CountView(context.Background(), published()))

	evs := pub.GetEvents()
	require.Len(t, evs, 1)
	require.Equal(t, events.TypeProfileViewed, evs[0].EventType)
	require.Equal(t, "acc-1", evs[0].AccountID)
	require.Equal(t, "ada", evs[0].Username)
}

func TestWriteProfile(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteProfile(rec, Build(published()), "https://bio.example"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `<meta property="og:title" content="Ada Lovelace (@ada)">`)
	require.Contains(t, body, `<meta property="og:url" content="https://bio.example/u/ada">`)
	require.Contains(t, body, `href="https://github.com/ada"`)
	require.Contains(t, body, "links-list")
	require.NotContains(t, body, "ada@example.com")
}

func TestWriteProfile_CardsComponent(t *testing.T) {
	p := published()
	p.Theme = "ocean"
	rec := httptest.NewRecorder()
	require.NoError(t, WriteProfile(rec, Build(p), ""))
	require.Contains(t, rec.Body.String(), "links-cards")
	require.NotContains(t, rec.Body.String(), "og:url")
}

func TestWriteProfile_EscapesContent(t *testing.T) {
	p := published()
	p.Bio = `<script>alert(1)</script>`
	rec := httptest.NewRecorder()
	require.NoError(t, WriteProfile(rec, Build(p), ""))
	require.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestWriteNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteNotFound(rec, "ghost"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Profile not found")
	require.Contains(t, rec.Body.String(), "@ghost")
}
