package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xbrain-api/internal/application/user"
	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/infrastructure/cache"
)

// MessageEnvelope is the generic response wrapper. Email is set on the
// register and resend-OTP successes, echoing the address the code went to.
type MessageEnvelope struct {
	Email   string            `json:"email,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// AuthEnvelope wraps login and verify-email responses. User carries the
// aggregated detail view (wallet, specializations, image URL), not the
// bare record.
type AuthEnvelope struct {
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	User         *user.Profile `json:"user,omitempty"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeFieldError reports a validation failure attributed to one field, in
// the shape clients render next to the offending form input.
func writeFieldError(w http.ResponseWriter, status int, field, msg string) {
	writeJSON(w, status, MessageEnvelope{Errors: map[string]string{field: msg}})
}

// statusFromErr maps sentinel errors to HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
