package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
)

// OnboardingEvaluator reports where a signed-in account stands.
type OnboardingEvaluator interface {
	Onboarding(ctx context.Context, sess *models.Session) (services.OnboardingStatus, error)
}

// RequireOnboarded guards the authenticated area. Anonymous callers get 401;
// callers whose profile is not complete get 409 with the route they belong on.
func RequireOnboarded(ev OnboardingEvaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil {
				apperr.Write(w, apperr.ErrUnauthenticated)
				return
			}

			status, err := ev.Onboarding(r.Context(), sess)
			if err != nil {
				logger.From(r.Context()).Error("failed to evaluate onboarding", "error", err)
				apperr.Write(w, err)
				return
			}
			if !status.Complete {
				writeJSON(w, http.StatusConflict, models.NewRedirectResponse("Finish setting up your profile", status.Route))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
