package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/session"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage/memory"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/username"
)

const waitTimeout = 2 * time.Second

type countingBackend struct {
	*services.ProfileService
	linkSaves atomic.Int32
}

func (b *countingBackend) SaveLinks(ctx context.Context, accountID string, list []models.BioLink) (*models.Profile, error) {
	b.linkSaves.Add(1)
	return b.ProfileService.SaveLinks(ctx, accountID, list)
}

type fixture struct {
	store    *memory.Store
	svc      *services.ProfileService
	backend  *countingBackend
	registry *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := memory.New("")
	require.NoError(t, err)
	svc := services.NewProfileService(store, services.ProfileServiceOptions{})
	backend := &countingBackend{ProfileService: svc}
	reg := NewRegistry(backend, Options{
		UsernameDebounce: 10 * time.Millisecond,
		LinksAutoSave:    80 * time.Millisecond,
		Buffer:           256,
	}, nil, logger.Nop())
	t.Cleanup(reg.CloseAll)
	return &fixture{store: store, svc: svc, backend: backend, registry: reg}
}

func (f *fixture) open(t *testing.T, accountID string) *Session {
	t.Helper()
	s, err := f.registry.Open(context.Background(), &models.Session{AccountID: accountID, DisplayName: "Ada"})
	require.NoError(t, err)
	return s
}

func waitFor(t *testing.T, s *Session, event string, match func(Message) bool) Message {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case m := <-s.Outbound():
			if m.Event == event && (match == nil || match(m)) {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", event)
			return Message{}
		}
	}
}

func stepIs(step onboarding.Step) func(Message) bool {
	return func(m Message) bool {
		st, ok := m.Data.(StateView)
		return ok && st.Step == step
	}
}

func availabilityIs(status username.Status) func(Message) bool {
	return func(m Message) bool {
		r, ok := m.Data.(username.Result)
		return ok && r.Status == status
	}
}

func TestSession_OpensAtIdentity(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	st := s.State()
	require.Equal(t, onboarding.StepIdentity, st.Step)
	require.Equal(t, onboarding.PhaseNeedsIdentity, st.Phase)
	require.NotNil(t, st.Profile)
	require.Equal(t, "Ada", st.Profile.DisplayName)
	require.Empty(t, st.Links)
	require.Nil(t, st.Theme)
}

func TestSession_FullOnboarding(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	ctx := context.Background()

	r, err := s.Username("Ada!")
	require.NoError(t, err)
	require.Equal(t, "ada", r.Candidate)
	require.Equal(t, username.StatusChecking, r.Status)
	waitFor(t, s, EventAvailability, availabilityIs(username.StatusAvailable))

	_, err = s.SubmitIdentity(ctx, "Analyst of engines")
	require.NoError(t, err)
	waitFor(t, s, EventState, stepIs(onboarding.StepLinks))

	_, err = s.SetLinks([]models.BioLink{{ID: "github", URL: "https://github.com/ada"}})
	require.NoError(t, err)
	_, err = s.SaveLinks(ctx)
	require.NoError(t, err)
	waitFor(t, s, EventState, stepIs(onboarding.StepTheme))

	_, err = s.SelectTheme("ocean")
	require.NoError(t, err)
	_, err = s.SaveTheme(ctx)
	require.NoError(t, err)

	m := waitFor(t, s, EventRedirect, nil)
	require.Equal(t, map[string]string{"route": onboarding.RouteDashboard}, m.Data)
	require.Equal(t, onboarding.StepDone, s.State().Step)

	p, err := f.store.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	require.True(t, p.ProfileComplete)
	require.Equal(t, "ada", p.Username)
	require.Equal(t, "ocean", p.Theme)
}

func TestSession_OutOfOrderCompletionJumpsToDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.UpsertProfileFields(ctx, "acc-1", models.ProfileFields{
		BioLinks: models.LinksPtr([]models.BioLink{{ID: "website", URL: "https://ada.dev"}}),
		Theme:    models.StringPtr("paper"),
	})
	require.NoError(t, err)

	s := f.open(t, "acc-1")
	require.Equal(t, onboarding.StepIdentity, s.State().Step)

	_, err = s.Username("ada")
	require.NoError(t, err)
	waitFor(t, s, EventAvailability, availabilityIs(username.StatusAvailable))
	_, err = s.SubmitIdentity(ctx, "hello")
	require.NoError(t, err)

	waitFor(t, s, EventRedirect, nil)
	require.Equal(t, onboarding.StepDone, s.State().Step)
}

func TestSession_IdentityGate(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	ctx := context.Background()

	_, err := s.SubmitIdentity(ctx, "bio")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = s.Username("ab")
	require.NoError(t, err)
	_, err = s.SubmitIdentity(ctx, "bio")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = s.Username("ada")
	require.NoError(t, err)
	waitFor(t, s, EventAvailability, availabilityIs(username.StatusAvailable))
	_, err = s.SubmitIdentity(ctx, "   ")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	p, err := f.store.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	require.Empty(t, p.Username)
}

func TestSession_UsernameTakenAtSave(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	ctx := context.Background()

	_, err := s.Username("ada")
	require.NoError(t, err)
	waitFor(t, s, EventAvailability, availabilityIs(username.StatusAvailable))

	// someone else claims it between the check and the submit
	_, err = f.store.UpsertProfileFields(ctx, "acc-2", models.ProfileFields{Username: models.StringPtr("ada")})
	require.NoError(t, err)

	_, err = s.SubmitIdentity(ctx, "bio")
	require.ErrorIs(t, err, apperr.ErrUsernameTaken)

	m := waitFor(t, s, EventError, nil)
	ev := m.Data.(ErrorEvent)
	require.Equal(t, "identity", ev.Surface)
	require.Equal(t, "Username is already taken", ev.Errors["username"])
	require.Equal(t, onboarding.StepIdentity, s.State().Step)
}

func TestSession_ExplicitSaveSupersedesAutoSave(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	_, err := s.SetLinks([]models.BioLink{{ID: "github", URL: "https://github.com/ada"}})
	require.NoError(t, err)
	require.True(t, s.State().LinksPending)

	_, err = s.SaveLinks(context.Background())
	require.NoError(t, err)
	require.False(t, s.State().LinksPending)

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), f.backend.linkSaves.Load())
}

func TestSession_AutoSaveIsSilent(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	_, err := s.SetLinks([]models.BioLink{
		{ID: "github", URL: "https://github.com/ada"},
		{ID: "website", URL: ""},
	})
	require.NoError(t, err)

	m := waitFor(t, s, EventSaved, nil)
	ev := m.Data.(SavedEvent)
	require.Equal(t, "links", ev.Surface)
	require.True(t, ev.Silent)
	require.Equal(t, []models.BioLink{{ID: "github", URL: "https://github.com/ada"}}, ev.Links)
}

func TestSession_InvalidLinksNeverSaved(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	_, err := s.SetLinks([]models.BioLink{{ID: "github", URL: "https://gitlab.com/ada"}})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "bioLinks.0")

	_, err = s.SaveLinks(context.Background())
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(0), f.backend.linkSaves.Load())
}

func TestSession_MoveLink(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	_, err := s.SetLinks([]models.BioLink{
		{ID: "github", URL: "https://github.com/ada"},
		{ID: "website", URL: "https://ada.dev"},
		{ID: "x", URL: "https://x.com/ada"},
	})
	require.NoError(t, err)

	moved, err := s.MoveLink(2, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "github", "website"}, ids(moved))

	_, err = s.MoveLink(5, 0)
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	saved, err := s.SaveLinks(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"x", "github", "website"}, ids(saved))
}

func ids(list []models.BioLink) []string {
	out := make([]string, len(list))
	for i, l := range list {
		out[i] = l.ID
	}
	return out
}

func TestSession_ThemeOverridesSurviveSwitching(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	_, err := s.CustomizeTheme(models.ThemeConfig{ButtonColor: "#123456"})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = s.SelectTheme("midnight")
	require.NoError(t, err)
	_, err = s.CustomizeTheme(models.ThemeConfig{ButtonColor: "#123456"})
	require.NoError(t, err)

	payload, err := s.SelectTheme("ocean")
	require.NoError(t, err)
	require.Equal(t, "#123456", payload.ThemeConfig.ButtonColor)

	payload, err = s.SelectTheme("midnight")
	require.NoError(t, err)
	require.Equal(t, "#123456", payload.ThemeConfig.ButtonColor)

	_, err = s.SelectTheme("nope")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestSession_SaveThemeKeepsOverrideMatchingDefault(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	inter := theme.Resolve("midnight").Defaults.FontFamily

	_, err := s.SelectTheme("ocean")
	require.NoError(t, err)
	_, err = s.CustomizeTheme(models.ThemeConfig{FontFamily: inter})
	require.NoError(t, err)
	_, err = s.SelectTheme("midnight")
	require.NoError(t, err)
	_, err = s.SaveTheme(context.Background())
	require.NoError(t, err)

	stored, err := f.store.GetProfile(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Equal(t, inter, stored.ThemeOverrides.FontFamily)

	p, err := theme.NewPicker(stored).Select("ocean")
	require.NoError(t, err)
	require.Equal(t, inter, p.ThemeConfig.FontFamily)
}

func TestSession_SaveThemeRequiresSelection(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	_, err := s.SaveTheme(context.Background())
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestSession_BackIsPresentational(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.UpsertProfileFields(ctx, "acc-1", models.ProfileFields{
		Username: models.StringPtr("ada"),
		Bio:      models.StringPtr("hi"),
	})
	require.NoError(t, err)

	s := f.open(t, "acc-1")
	require.Equal(t, onboarding.StepLinks, s.State().Step)

	st, err := s.Back()
	require.NoError(t, err)
	require.Equal(t, onboarding.StepIdentity, st.Step)

	p, err := f.store.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, "ada", p.Username)
}

func TestSession_Refresh(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	ctx := context.Background()

	// another tab finished the identity step
	_, err := f.svc.SaveIdentity(ctx, "acc-1", "ada", "hi")
	require.NoError(t, err)

	st, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, onboarding.StepLinks, st.Step)
	require.Equal(t, "ada", st.Profile.Username)
}

func TestSession_ClosedIgnoresCommands(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")
	f.registry.Close(s)

	_, err := s.Username("ada")
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.SaveLinks(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.Refresh(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_GetAndSignOut(t *testing.T) {
	f := newFixture(t)
	a1 := f.open(t, "acc-1")
	a2 := f.open(t, "acc-1")
	b := f.open(t, "acc-2")
	require.Equal(t, 3, f.registry.Len())

	got, err := f.registry.Get(a1.ID.String(), "acc-1")
	require.NoError(t, err)
	require.Same(t, a1, got)

	_, err = f.registry.Get(a1.ID.String(), "acc-2")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.registry.Get("not-a-uuid", "acc-1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	f.registry.OnSessionChange(session.Change{AccountID: "acc-1", Session: &models.Session{AccountID: "acc-1"}})
	require.Equal(t, 3, f.registry.Len())

	f.registry.OnSessionChange(session.Change{AccountID: "acc-1"})
	require.Equal(t, 1, f.registry.Len())

	for _, s := range []*Session{a1, a2} {
		select {
		case <-s.Done():
		case <-time.After(waitTimeout):
			t.Fatal("session not closed on sign-out")
		}
	}

	_, err = f.registry.Get(b.ID.String(), "acc-2")
	require.NoError(t, err)
}

func TestSession_Serve(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "acc-1")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	served := make(chan struct{})
	go func() {
		defer close(served)
		s.Serve(rec, req)
	}()

	_, err := s.Username("Ada")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-served:
	case <-time.After(waitTimeout):
		t.Fatal("stream did not stop when the client went away")
	}

	body := rec.Body.String()
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, "event: session\ndata: {\"id\":\""+s.ID.String()))
	require.Contains(t, body, "event: availability\n")
	require.Contains(t, body, `"candidate":"ada"`)
}
