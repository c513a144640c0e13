package httpx

import (
	"errors"
	"net/http"

	"github.com/books4all/books4all/internal/shared"
)

// ErrValidation marks malformed or invalid request payloads.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authentication failures carry the bearer challenge; authorization failures
// stay generic so role requirements never leak to untrusted callers.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrDisabled):
		Problem(w, http.StatusForbidden, "Forbidden", "account disabled")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
	case errors.Is(err, shared.ErrLimiterUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
