package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/middleware"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	timeout  time.Duration
}

func NewProfileHandler(profiles *services.ProfileService, timeout time.Duration) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, timeout: timeout}
}

type identityRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type bioRequest struct {
	Bio string `json:"bio"`
}

type linksRequest struct {
	BioLinks []models.BioLink `json:"bioLinks"`
}

type themeRequest struct {
	Theme       string              `json:"theme"`
	ThemeConfig *models.ThemeConfig `json:"themeConfig"`
}

// GetProfile returns the caller's profile, creating it on first access.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	prof, err := h.profiles.Ensure(ctx, middleware.GetSession(r.Context()))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

func (h *ProfileHandler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.profiles.Onboarding(ctx, middleware.GetSession(r.Context()))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(status))
}

// CheckUsername is advisory; the save itself is what enforces uniqueness.
func (h *ProfileHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	avail, err := h.profiles.CheckUsername(ctx, middleware.GetUserID(r.Context()), chi.URLParam(r, "candidate"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(avail))
}

func (h *ProfileHandler) SaveIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respond(w)(h.profiles.SaveIdentity(ctx, middleware.GetUserID(r.Context()), req.Username, req.Bio))
}

func (h *ProfileHandler) SaveUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respond(w)(h.profiles.SaveUsername(ctx, middleware.GetUserID(r.Context()), req.Username))
}

func (h *ProfileHandler) SaveBio(w http.ResponseWriter, r *http.Request) {
	var req bioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respond(w)(h.profiles.SaveBio(ctx, middleware.GetUserID(r.Context()), req.Bio))
}

func (h *ProfileHandler) SaveLinks(w http.ResponseWriter, r *http.Request) {
	var req linksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respond(w)(h.profiles.SaveLinks(ctx, middleware.GetUserID(r.Context()), req.BioLinks))
}

func (h *ProfileHandler) SaveTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respond(w)(h.profiles.SaveTheme(ctx, middleware.GetUserID(r.Context()), req.Theme, req.ThemeConfig))
}

// Dashboard is the main authenticated area. The onboarding guard runs in
// front of it, so reaching here means the profile is complete.
func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	prof, err := h.profiles.Get(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"profile":   prof,
		"publicURL": "/u/" + prof.Username,
		"views":     prof.Views,
	}))
}

func (h *ProfileHandler) respond(w http.ResponseWriter) func(*models.Profile, error) {
	return func(prof *models.Profile, err error) {
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
	}
}
