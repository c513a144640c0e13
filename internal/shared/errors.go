package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, invalid, expired or wrong-kind
	// token, or a principal that no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrDisabled indicates the principal exists but the account is inactive.
	ErrDisabled = errors.New("account disabled")
	// ErrForbidden indicates the principal's role is not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited indicates the request quota is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrLimiterUnavailable indicates the rate-limit store could not be reached.
	ErrLimiterUnavailable = errors.New("rate limit store unavailable")
)
