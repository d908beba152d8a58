package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/middleware"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/session"
)

type SessionHandler struct {
	adapter  *session.Adapter
	profiles *services.ProfileService
	timeout  time.Duration
}

func NewSessionHandler(adapter *session.Adapter, profiles *services.ProfileService, timeout time.Duration) *SessionHandler {
	return &SessionHandler{adapter: adapter, profiles: profiles, timeout: timeout}
}

// SignInResponse is returned by POST /api/session.
type SignInResponse struct {
	Profile *models.Profile  `json:"profile"`
	Phase   onboarding.Phase `json:"phase"`
	Route   string           `json:"route"`
}

// SignIn verifies the bearer ID token, bootstraps the profile and tells the
// caller where the flow continues.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.adapter.SignIn(ctx, token)
	if err != nil {
		logger.From(ctx).Debug("sign-in rejected", "error", err)
		apperr.Write(w, apperr.ErrUnauthenticated)
		return
	}

	prof, err := h.profiles.SignedIn(ctx, sess)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	status := services.StatusFor(prof)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(SignInResponse{
		Profile: prof,
		Phase:   status.Phase,
		Route:   status.Route,
	}))
}

// SignOut revokes the caller's tokens and ends their live sessions.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.adapter.SignOut(ctx, userID); err != nil {
		// local state is already gone; the provider call is best-effort
		logger.From(ctx).Warn("failed to revoke tokens", "account_id", userID, "error", err)
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"signedOut": true}))
}
