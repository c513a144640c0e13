// Package gate orchestrates request admission: identity resolution, role
// policy and rate limiting, in that strict order, in front of every handler.
package gate

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/books4all/books4all/internal/auth"
	"github.com/books4all/books4all/internal/observability"
	"github.com/books4all/books4all/internal/platform/httpx"
	"github.com/books4all/books4all/internal/ratelimit"
	"github.com/books4all/books4all/internal/shared"
)

// IdentityMode selects how a route treats the bearer token.
type IdentityMode int

const (
	// IdentityAnonymous ignores any bearer token; rate limiting keys on the
	// network origin.
	IdentityAnonymous IdentityMode = iota
	// IdentityOptional resolves the principal when a valid token is present
	// and falls back to anonymous otherwise.
	IdentityOptional
	// IdentityRequired rejects requests without a valid, active principal.
	IdentityRequired
)

// RouteConfig parameterizes the admission pipeline for one route group.
// A non-empty role set implies IdentityRequired.
type RouteConfig struct {
	Identity IdentityMode
	Roles    []auth.Role
	MaxCalls int
	Period   time.Duration
}

// Gate composes the resolver and limiter into chi middleware.
type Gate struct {
	resolver *auth.Resolver
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// New constructs a Gate. Metrics may be nil.
func New(resolver *auth.Resolver, limiter *ratelimit.Limiter, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		resolver: resolver,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Admit builds the per-route admission middleware. Misconfigured routes
// panic here, at registration time, never during request handling.
func (g *Gate) Admit(cfg RouteConfig) func(http.Handler) http.Handler {
	if cfg.MaxCalls <= 0 || cfg.Period <= 0 {
		panic(fmt.Sprintf("gate: route limit must be positive, got %d/%s", cfg.MaxCalls, cfg.Period))
	}
	if cfg.Roles != nil && len(cfg.Roles) == 0 {
		panic("gate: route configured with an empty role set")
	}
	if len(cfg.Roles) > 0 {
		cfg.Identity = IdentityRequired
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rawToken := BearerToken(r)

			// Stage 1: identity. Failure short-circuits before the limiter
			// ever runs under the caller's identity.
			var principal *auth.Principal
			switch cfg.Identity {
			case IdentityRequired:
				p, err := g.resolver.ResolveRequired(ctx, rawToken)
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				principal = p
			case IdentityOptional:
				principal = g.resolver.ResolveOptional(ctx, rawToken)
			}

			// Stage 2: role policy.
			if len(cfg.Roles) > 0 {
				if err := auth.RequireRole(principal, cfg.Roles); err != nil {
					g.logger.Warn("role denied",
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
					httpx.RespondError(w, err)
					return
				}
			}

			// Stage 3: rate limit, keyed on the resolved or anonymous
			// identifier.
			identifier := ratelimit.AnonymousIdentifier(r)
			if principal != nil {
				identifier = ratelimit.UserIdentifier(principal.ID.String())
			}
			if !g.evaluate(w, r, identifier, r.URL.Path, cfg.MaxCalls, cfg.Period) {
				return
			}

			if principal != nil {
				ctx = auth.ContextWithPrincipal(ctx, principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Exempt paths skip the global ceiling unconditionally.
var globalExemptPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/docs",
	"/openapi.json",
}

// Global builds the blanket per-client middleware applied before any
// per-route limit. Identity is not yet resolved at this point in the stack,
// so the key is always the network origin.
func (g *Gate) Global(maxCalls int, period time.Duration) func(http.Handler) http.Handler {
	if maxCalls <= 0 || period <= 0 {
		panic(fmt.Sprintf("gate: global limit must be positive, got %d/%s", maxCalls, period))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, exempt := range globalExemptPaths {
				if strings.HasPrefix(r.URL.Path, exempt) {
					next.ServeHTTP(w, r)
					return
				}
			}
			identifier := ratelimit.AnonymousIdentifier(r)
			if !g.evaluate(w, r, identifier, ratelimit.GlobalEndpoint, maxCalls, period) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// evaluate runs the limiter, writes quota headers and the rejection if any,
// and reports whether the request may proceed.
func (g *Gate) evaluate(w http.ResponseWriter, r *http.Request, identifier, endpoint string, maxCalls int, period time.Duration) bool {
	dec, err := g.limiter.Evaluate(r.Context(), identifier, endpoint, maxCalls, period)
	if err != nil {
		if g.limiter.FailOpen() {
			g.logger.Warn("rate limit store unavailable, admitting",
				slog.String("identifier", identifier),
				slog.Any("error", err))
			g.recordDecision("fail_open")
			return true
		}
		g.logger.Error("rate limit store unavailable, rejecting",
			slog.String("identifier", identifier),
			slog.Any("error", err))
		g.recordDecision("fail_closed")
		httpx.RespondError(w, shared.ErrLimiterUnavailable)
		return false
	}

	header := w.Header()
	header.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	if dec.Allowed {
		header.Set("X-RateLimit-Reset", strconv.FormatInt(g.now().Add(period).Unix(), 10))
		g.recordDecision("allowed")
		return true
	}

	header.Set("X-RateLimit-Reset", strconv.FormatInt(g.now().Add(time.Duration(dec.RetryAfter)*time.Second).Unix(), 10))
	header.Set("Retry-After", strconv.Itoa(dec.RetryAfter))
	g.recordDecision("rejected")
	httpx.RespondError(w, shared.ErrRateLimited)
	return false
}

func (g *Gate) recordDecision(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordRateLimitDecision(outcome)
	}
}
