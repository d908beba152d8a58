package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/cache"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/links"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/metrics"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/username"
)

// DefaultBioMax is the one bio length bound every surface enforces.
const DefaultBioMax = 500

// Surface names used in metrics and events.
const (
	SurfaceSignIn   = "sign_in"
	SurfaceIdentity = "identity"
	SurfaceUsername = "username"
	SurfaceBio      = "bio"
	SurfaceLinks    = "links"
	SurfaceTheme    = "theme"
)

type ProfileServiceOptions struct {
	Cache     cache.ProfileCache
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	BioMax    int
	Now       func() time.Time
}

// ProfileService is the single write path for profile documents. REST
// handlers and live editing sessions both call it, so validation, cache
// invalidation, events and metrics behave the same everywhere.
type ProfileService struct {
	repo      storage.Repository
	cache     cache.ProfileCache
	publisher events.Publisher
	metrics   *metrics.Metrics
	bioMax    int
	now       func() time.Time
}

func NewProfileService(repo storage.Repository, opts ProfileServiceOptions) *ProfileService {
	s := &ProfileService{
		repo:      repo,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		bioMax:    opts.BioMax,
		now:       opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.bioMax <= 0 {
		s.bioMax = DefaultBioMax
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// BioMax is the enforced bio bound.
func (s *ProfileService) BioMax() int { return s.bioMax }

// Get returns the stored profile.
func (s *ProfileService) Get(ctx context.Context, accountID string) (*models.Profile, error) {
	const op = "services.profile.Get"
	if accountID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	p, err := s.repo.GetProfile(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return p, nil
}

// Ensure returns the caller's profile, creating it from the session if this
// account has never been stored.
func (s *ProfileService) Ensure(ctx context.Context, sess *models.Session) (*models.Profile, error) {
	const op = "services.profile.Ensure"
	if !onboarding.IsAuthenticatedAreaAllowed(sess) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	p, err := s.repo.GetProfile(ctx, sess.AccountID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return s.write(ctx, op, SurfaceSignIn, sess.AccountID, models.ProfileFields{
		DisplayName: models.StringPtr(sess.DisplayName),
		PhotoURL:    models.StringPtr(sess.PhotoURL),
		Email:       models.StringPtr(sess.Email),
	})
}

// SignedIn creates the profile on first sign-in and refreshes the
// identity-provider copies and lastLoginAt on every sign-in.
func (s *ProfileService) SignedIn(ctx context.Context, sess *models.Session) (*models.Profile, error) {
	const op = "services.profile.SignedIn"
	if !onboarding.IsAuthenticatedAreaAllowed(sess) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	now := s.now().UTC()
	return s.write(ctx, op, SurfaceSignIn, sess.AccountID, models.ProfileFields{
		DisplayName: models.StringPtr(sess.DisplayName),
		PhotoURL:    models.StringPtr(sess.PhotoURL),
		Email:       models.StringPtr(sess.Email),
		LastLoginAt: &now,
	})
}

// Availability is the answer to a username check.
type Availability struct {
	Candidate string `json:"candidate"`
	Available bool   `json:"available"`
}

// CheckUsername normalises raw and reports whether the caller may claim it.
// The caller's own current username counts as available.
func (s *ProfileService) CheckUsername(ctx context.Context, accountID, raw string) (Availability, error) {
	const op = "services.profile.CheckUsername"
	lg := logger.From(ctx).With("op", op, "account_id", accountID)

	candidate := username.Normalize(raw)
	out := Availability{Candidate: candidate}
	if err := username.Validate(candidate); err != nil {
		s.metrics.UsernameChecked("invalid")
		return out, fmt.Errorf("%s: %w", op, apperr.Invalid("username", err.Error()))
	}

	if accountID != "" {
		own, err := s.repo.GetProfile(ctx, accountID)
		switch {
		case err == nil && own.Username == candidate:
			s.metrics.UsernameChecked("available")
			out.Available = true
			return out, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			lg.Error("failed to load own profile", "error", err)
			s.metrics.UsernameChecked("error")
			return out, fmt.Errorf("%s: %w", op, mapStorageErr(err))
		}
	}

	taken, err := s.repo.IsUsernameTaken(ctx, candidate)
	if err != nil {
		lg.Error("availability check failed", "candidate", candidate, "error", err)
		s.metrics.UsernameChecked("error")
		return out, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	out.Available = !taken
	if taken {
		s.metrics.UsernameChecked("taken")
	} else {
		s.metrics.UsernameChecked("available")
	}
	return out, nil
}

// AvailabilityFor adapts CheckUsername to the live username checker.
func (s *ProfileService) AvailabilityFor(accountID string) username.AvailabilityFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		a, err := s.CheckUsername(ctx, accountID, candidate)
		if err != nil {
			return false, err
		}
		return a.Available, nil
	}
}

// SaveIdentity is the combined username+bio onboarding step.
func (s *ProfileService) SaveIdentity(ctx context.Context, accountID, rawUsername, bio string) (*models.Profile, error) {
	const op = "services.profile.SaveIdentity"

	fields := map[string]string{}
	name, nameErr := s.cleanUsername(rawUsername)
	if nameErr != "" {
		fields["username"] = nameErr
	}
	cleanBio, bioErr := s.cleanBio(bio)
	if bioErr != "" {
		fields["bio"] = bioErr
	}
	if len(fields) > 0 {
		return nil, s.invalid(ctx, op, SurfaceIdentity, accountID, &apperr.ValidationError{Fields: fields})
	}

	return s.write(ctx, op, SurfaceIdentity, accountID, models.ProfileFields{
		Username: models.StringPtr(name),
		Bio:      models.StringPtr(cleanBio),
	})
}

// SaveUsername claims or changes the username on its own.
func (s *ProfileService) SaveUsername(ctx context.Context, accountID, rawUsername string) (*models.Profile, error) {
	const op = "services.profile.SaveUsername"
	name, msg := s.cleanUsername(rawUsername)
	if msg != "" {
		return nil, s.invalid(ctx, op, SurfaceUsername, accountID, apperr.Invalid("username", msg))
	}
	return s.write(ctx, op, SurfaceUsername, accountID, models.ProfileFields{Username: models.StringPtr(name)})
}

// SaveBio updates the bio on its own.
func (s *ProfileService) SaveBio(ctx context.Context, accountID, bio string) (*models.Profile, error) {
	const op = "services.profile.SaveBio"
	clean, msg := s.cleanBio(bio)
	if msg != "" {
		return nil, s.invalid(ctx, op, SurfaceBio, accountID, apperr.Invalid("bio", msg))
	}
	return s.write(ctx, op, SurfaceBio, accountID, models.ProfileFields{Bio: models.StringPtr(clean)})
}

// SaveLinks validates the list through the links gate and persists it in
// order, without the empty entries.
func (s *ProfileService) SaveLinks(ctx context.Context, accountID string, list []models.BioLink) (*models.Profile, error) {
	const op = "services.profile.SaveLinks"
	clean, err := links.Validate(list)
	if err != nil {
		var inv *links.InvalidError
		if errors.As(err, &inv) {
			return nil, s.invalid(ctx, op, SurfaceLinks, accountID, &apperr.ValidationError{Fields: inv.Fields()})
		}
		return nil, s.invalid(ctx, op, SurfaceLinks, accountID, apperr.Invalid("bioLinks", err.Error()))
	}
	return s.write(ctx, op, SurfaceLinks, accountID, models.ProfileFields{BioLinks: models.LinksPtr(clean)})
}

// SaveTheme stores a catalog theme. With a nil config the theme's defaults
// are merged with the overrides already on the profile.
func (s *ProfileService) SaveTheme(ctx context.Context, accountID, key string, cfg *models.ThemeConfig) (*models.Profile, error) {
	const op = "services.profile.SaveTheme"
	if _, ok := theme.Lookup(key); !ok {
		return nil, s.invalid(ctx, op, SurfaceTheme, accountID, apperr.Invalid("theme", "Choose a theme from the catalog"))
	}

	current, err := s.repo.GetProfile(ctx, accountID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}

	var payload theme.Payload
	if cfg != nil {
		var stored models.ThemeConfig
		if current != nil {
			stored = current.ThemeOverrides
		}
		payload = theme.Payload{Theme: key, ThemeConfig: *cfg, Overrides: theme.Reconcile(key, stored, *cfg)}
	} else {
		payload, _ = theme.NewPicker(current).Select(key)
	}
	return s.SaveThemePayload(ctx, accountID, payload)
}

// SaveThemePayload stores a picker payload as is: theme, merged config and the
// explicit overrides.
func (s *ProfileService) SaveThemePayload(ctx context.Context, accountID string, payload theme.Payload) (*models.Profile, error) {
	const op = "services.profile.SaveThemePayload"
	if _, ok := theme.Lookup(payload.Theme); !ok {
		return nil, s.invalid(ctx, op, SurfaceTheme, accountID, apperr.Invalid("theme", "Choose a theme from the catalog"))
	}
	return s.write(ctx, op, SurfaceTheme, accountID, models.ProfileFields{
		Theme:          models.StringPtr(payload.Theme),
		ThemeConfig:    &payload.ThemeConfig,
		ThemeOverrides: &payload.Overrides,
	})
}

// OnboardingStatus is the evaluator's verdict plus the guard decision.
type OnboardingStatus struct {
	Phase    onboarding.Phase `json:"phase"`
	Route    string           `json:"route"`
	Allowed  bool             `json:"allowed"`
	Complete bool             `json:"complete"`
}

// Onboarding evaluates the caller's stored profile. A missing profile is
// treated as a fresh one.
func (s *ProfileService) Onboarding(ctx context.Context, sess *models.Session) (OnboardingStatus, error) {
	const op = "services.profile.Onboarding"
	if !onboarding.IsAuthenticatedAreaAllowed(sess) {
		return OnboardingStatus{Phase: onboarding.PhaseUnknown, Route: onboarding.RoutePublic}, nil
	}
	p, err := s.repo.GetProfile(ctx, sess.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		p, err = &models.Profile{AccountID: sess.AccountID}, nil
	}
	if err != nil {
		return OnboardingStatus{}, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return StatusFor(p), nil
}

// StatusFor evaluates an already loaded profile.
func StatusFor(p *models.Profile) OnboardingStatus {
	phase := onboarding.Evaluate(p)
	return OnboardingStatus{
		Phase:    phase,
		Route:    onboarding.RouteFor(phase),
		Allowed:  p != nil,
		Complete: phase == onboarding.PhaseComplete,
	}
}

func (s *ProfileService) cleanUsername(raw string) (string, string) {
	name := username.Normalize(raw)
	if err := username.Validate(name); err != nil {
		return "", err.Error()
	}
	return name, ""
}

func (s *ProfileService) cleanBio(bio string) (string, string) {
	clean := strings.TrimSpace(bio)
	switch {
	case clean == "":
		return "", "Bio is required"
	case utf8.RuneCountInString(clean) > s.bioMax:
		return "", fmt.Sprintf("Bio must be at most %d characters", s.bioMax)
	}
	return clean, ""
}

func (s *ProfileService) invalid(ctx context.Context, op, surface, accountID string, verr *apperr.ValidationError) error {
	logger.From(ctx).Warn("validation failed", "op", op, "account_id", accountID, "fields", verr.Fields)
	s.metrics.SurfaceSaved(surface, metrics.ResultInvalid)
	return fmt.Errorf("%s: %w", op, verr)
}

// write persists one surface's fields and runs the best-effort follow-ups:
// public cache invalidation for the old and new username, and the
// profile.updated event. Their failures are logged and swallowed.
func (s *ProfileService) write(ctx context.Context, op, surface, accountID string, fields models.ProfileFields) (*models.Profile, error) {
	lg := logger.From(ctx).With("op", op, "account_id", accountID, "surface", surface)
	if accountID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}

	var oldUsername string
	if fields.Username != nil {
		if before, err := s.repo.GetProfile(ctx, accountID); err == nil {
			oldUsername = before.Username
		}
	}

	p, err := s.repo.UpsertProfileFields(ctx, accountID, fields)
	if err != nil {
		mapped := mapStorageErr(err)
		switch {
		case errors.Is(mapped, apperr.ErrUsernameTaken):
			lg.Warn("username already taken", "username", *fields.Username)
			s.metrics.SurfaceSaved(surface, metrics.ResultTaken)
		default:
			lg.Error("failed to save profile", "error", err)
			s.metrics.SurfaceSaved(surface, metrics.ResultUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", op, mapped)
	}
	s.metrics.SurfaceSaved(surface, metrics.ResultOK)

	if err := s.cache.Invalidate(ctx, oldUsername, p.Username); err != nil {
		lg.Warn("failed to invalidate public profile cache", "error", err)
	}
	if s.publisher != nil {
		ev := events.NewProfileEvent(events.TypeProfileUpdated, accountID, p.Username)
		ev.Fields = fields.Names()
		ev.Phase = string(onboarding.Evaluate(p))
		if err := s.publisher.PublishProfileEvent(ctx, ev); err != nil {
			lg.Warn("failed to publish profile.updated", "error", err)
		}
	}

	lg.Debug("profile saved", "fields", fields.Names())
	return p, nil
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, storage.ErrUsernameTaken):
		return apperr.ErrUsernameTaken
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
}
