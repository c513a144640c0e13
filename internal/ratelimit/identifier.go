package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// GlobalEndpoint is the shared endpoint label for the blanket per-client
// ceiling applied before any per-route limit.
const GlobalEndpoint = "global"

// ClientIP extracts the caller's network origin, preferring the first hop of
// X-Forwarded-For over the direct peer address. The header is taken at face
// value; whether it is trustworthy depends on the proxy in front of the
// service.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return ""
	}
	return host
}

// AnonymousIdentifier keys unauthenticated traffic by network origin,
// falling back to a literal "unknown" when no address is available.
func AnonymousIdentifier(r *http.Request) string {
	ip := ClientIP(r)
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// UserIdentifier keys authenticated traffic by principal identifier.
func UserIdentifier(id string) string {
	return "user:" + id
}
