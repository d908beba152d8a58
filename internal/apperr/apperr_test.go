package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

func TestToHTTP_Mapping(t *testing.T) {
	tcs := []struct {
		name   string
		err    error
		status int
	}{
		{"nil", nil, http.StatusInternalServerError},
		{"unauthenticated", fmt.Errorf("op: %w", ErrUnauthenticated), http.StatusUnauthorized},
		{"validation", Invalid("bio", "too long"), http.StatusBadRequest},
		{"bare validation", ErrValidationFailed, http.StatusBadRequest},
		{"taken", fmt.Errorf("op: %w", ErrUsernameTaken), http.StatusConflict},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unavailable", fmt.Errorf("op: %w", ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"canceled", context.Canceled, StatusClientClosedRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("mongo: connection reset by peer"), http.StatusInternalServerError},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := ToHTTP(tc.err)
			require.Equal(t, tc.status, status)
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Error)
			require.NotContains(t, resp.Error, "mongo")
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"bio": "required", "username": "too short"}}
	require.ErrorIs(t, err, ErrValidationFailed)
	require.Equal(t, "validation failed: bio: required; username: too short", err.Error())

	wrapped := fmt.Errorf("service.SaveIdentity: %w", err)
	var got *ValidationError
	require.True(t, errors.As(wrapped, &got))
	require.Equal(t, "required", got.Fields["bio"])
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Invalid("bioLinks.0", "Enter a valid URL"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Validation failed", body.Error)
	require.Equal(t, "Enter a valid URL", body.Errors["bioLinks.0"])
}

func TestMessage(t *testing.T) {
	require.Equal(t, "Username is already taken", Message(ErrUsernameTaken))
}
