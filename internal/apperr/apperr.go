// Package apperr is the error taxonomy the editing surfaces and handlers share,
// and its mapping onto HTTP responses.
package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// StatusClientClosedRequest is the non-standard code for a client that went away.
const StatusClientClosedRequest = 499

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrValidationFailed = errors.New("validation failed")
	ErrUsernameTaken    = errors.New("username taken")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("not found")
)

// ValidationError carries per-field messages. It matches ErrValidationFailed.
type ValidationError struct {
	Fields map[string]string
}

// Invalid builds a single-field validation error.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// ToHTTP maps an error to a status code and the response envelope. Messages
// are safe to show; driver details never leak.
func ToHTTP(err error) (int, models.APIResponse) {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusInternalServerError, models.NewErrorResponse("Internal error")
	case errors.As(err, &verr):
		return http.StatusBadRequest, models.NewValidationErrorResponse(verr.Fields)
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest, models.NewErrorResponse("Validation failed")
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, models.NewErrorResponse("Sign in required")
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict, models.APIResponse{
			Error:  "Username is already taken",
			Errors: map[string]string{"username": "Username is already taken"},
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, models.NewErrorResponse("Profile not found")
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, models.NewErrorResponse("Service temporarily unavailable, please retry")
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, models.NewErrorResponse("Request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, models.NewErrorResponse("Request timed out, please retry")
	default:
		return http.StatusInternalServerError, models.NewErrorResponse("Internal error")
	}
}

// Write sends the mapped error.
func Write(w http.ResponseWriter, err error) {
	status, resp := ToHTTP(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Message returns the user-facing text for err, as shown in a surface's error
// state.
func Message(err error) string {
	_, resp := ToHTTP(err)
	return resp.Error
}
