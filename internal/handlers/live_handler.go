package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/live"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/middleware"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

type LiveHandler struct {
	registry *live.Registry
	timeout  time.Duration
}

func NewLiveHandler(registry *live.Registry, timeout time.Duration) *LiveHandler {
	return &LiveHandler{registry: registry, timeout: timeout}
}

type candidateRequest struct {
	Candidate string `json:"candidate"`
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type selectThemeRequest struct {
	Theme string `json:"theme"`
}

type customizeThemeRequest struct {
	ThemeConfig models.ThemeConfig `json:"themeConfig"`
}

// Stream opens a live session and holds the SSE connection until the client
// leaves.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	s, err := h.registry.Open(ctx, middleware.GetSession(r.Context()))
	cancel()
	if err != nil {
		apperr.Write(w, err)
		return
	}
	defer h.registry.Close(s)

	logger.From(r.Context()).Info("live session started", "live_session", s.ID)
	s.Serve(w, r)
}

func (h *LiveHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := s.Refresh(ctx)
	h.reply(w, st, err)
}

func (h *LiveHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := s.Back()
	h.reply(w, st, err)
}

func (h *LiveHandler) Username(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req candidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Username(req.Candidate)
	h.reply(w, res, err)
}

func (h *LiveHandler) Identity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req bioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	prof, err := s.SubmitIdentity(ctx, req.Bio)
	h.reply(w, prof, err)
}

// SetLinks replaces the working list. An invalid list is kept and reported
// with its per-entry errors; nothing is saved until it is fixed.
func (h *LiveHandler) SetLinks(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req linksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	working, err := s.SetLinks(req.BioLinks)
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusOK, models.APIResponse{
			Success: true,
			Data:    map[string]interface{}{"bioLinks": working, "valid": false},
			Errors:  verr.Fields,
		})
		return
	}
	h.reply(w, map[string]interface{}{"bioLinks": working, "valid": true}, err)
}

func (h *LiveHandler) MoveLink(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	moved, err := s.MoveLink(req.From, req.To)
	h.reply(w, map[string]interface{}{"bioLinks": moved}, err)
}

func (h *LiveHandler) SaveLinks(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	saved, err := s.SaveLinks(ctx)
	h.reply(w, map[string]interface{}{"bioLinks": saved}, err)
}

func (h *LiveHandler) SelectTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.SelectTheme(req.Theme)
	h.reply(w, payload, err)
}

func (h *LiveHandler) CustomizeTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req customizeThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.CustomizeTheme(req.ThemeConfig)
	h.reply(w, payload, err)
}

func (h *LiveHandler) SaveTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	prof, err := s.SaveTheme(ctx)
	h.reply(w, prof, err)
}

func (h *LiveHandler) session(w http.ResponseWriter, r *http.Request) (*live.Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Live session not found"))
		return nil, false
	}
	return s, true
}

func (h *LiveHandler) reply(w http.ResponseWriter, data interface{}, err error) {
	switch {
	case errors.Is(err, live.ErrClosed):
		writeJSON(w, http.StatusGone, models.NewErrorResponse("Live session closed"))
	case err != nil:
		apperr.Write(w, err)
	default:
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(data))
	}
}
