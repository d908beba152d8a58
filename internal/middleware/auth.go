package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

type contextKey string

const SessionKey contextKey = "session"

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Session, error)
}

// Authenticate validates the bearer token, when there is one, and stores the
// session in the request context. Requests without a header pass through
// anonymously; a present but bad token is rejected.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}

			sess, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.From(r.Context()).Debug("token rejected", "error", err)
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				return
			}

			ctx := WithSession(r.Context(), sess)
			ctx = logger.Into(ctx, logger.From(ctx).With("account_id", sess.AccountID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			apperr.Write(w, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// GetSession extracts the session from context, nil when anonymous.
func GetSession(ctx context.Context) *models.Session {
	sess, ok := ctx.Value(SessionKey).(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetUserID extracts the account id from context
func GetUserID(ctx context.Context) string {
	if sess := GetSession(ctx); sess != nil {
		return sess.AccountID
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
