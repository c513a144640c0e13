package gate

import (
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// BearerToken extracts the bearer credential from the Authorization header.
// The scheme is matched case-insensitively. An absent or malformed header
// yields the empty string; absence is a valid state (anonymous caller), not
// an error at this layer.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
