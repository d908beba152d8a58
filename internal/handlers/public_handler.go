package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/render"
)

// PublicHandler serves profile pages to visitors. No session is involved.
type PublicHandler struct {
	renderer *render.Renderer
	baseURL  string
	timeout  time.Duration
}

func NewPublicHandler(renderer *render.Renderer, baseURL string, timeout time.Duration) *PublicHandler {
	return &PublicHandler{renderer: renderer, baseURL: baseURL, timeout: timeout}
}

// Page renders GET /u/{username} as HTML. Unknown names get the not-found
// page, never an error banner.
func (h *PublicHandler) Page(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "username")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.renderer.Render(ctx, name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if werr := render.WriteNotFound(w, name); werr != nil {
			logger.From(ctx).Error("failed to render not-found page", "error", werr)
		}
		return
	case err != nil:
		status, _ := apperr.ToHTTP(err)
		http.Error(w, apperr.Message(err), status)
		return
	}

	if err := render.WriteProfile(w, view, h.baseURL); err != nil {
		logger.From(ctx).Error("failed to render profile page", "username", name, "error", err)
	}
}

// JSON serves GET /api/public/{username}.
func (h *PublicHandler) JSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.renderer.Render(ctx, chi.URLParam(r, "username"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(view))
}
