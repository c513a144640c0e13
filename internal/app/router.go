package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/books4all/books4all/internal/auth"
	"github.com/books4all/books4all/internal/gate"
	"github.com/books4all/books4all/internal/observability"
	"github.com/books4all/books4all/internal/users"
)

const readyProbeTimeout = 2 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Gate         *gate.Gate
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	Pool         *pgxpool.Pool
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with per-route admission policies.
// Role sets, call limits and periods live here, not at handler call sites.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Gate:    params.Gate,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readyProbeTimeout)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				params.Logger.Warn("readiness probe", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not_ready"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	cfg := params.Config

	r.Route("/api/v1", func(r chi.Router) {
		// Login and refresh are anonymous and tightly limited: 5 attempts
		// per 15 minutes per client against brute force.
		r.Route("/auth", func(r chi.Router) {
			r.Use(params.Gate.Admit(gate.RouteConfig{
				Identity: gate.IdentityAnonymous,
				MaxCalls: cfg.RateLimitLoginCalls,
				Period:   cfg.RateLimitLoginPeriod,
			}))
			params.AuthHandler.MountRoutes(r)
		})

		// Self-inspection: any authenticated, active account.
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(params.Gate.Admit(gate.RouteConfig{
					Roles:    auth.BuyerOrAbove,
					MaxCalls: cfg.RateLimitDefaultCalls,
					Period:   cfg.RateLimitDefaultPeriod,
				}))
				params.UsersHandler.MountMe(r)
			})

			// Account administration is admin only.
			r.Group(func(r chi.Router) {
				r.Use(params.Gate.Admit(gate.RouteConfig{
					Roles:    auth.AdminOnly,
					MaxCalls: cfg.RateLimitDefaultCalls,
					Period:   cfg.RateLimitDefaultPeriod,
				}))
				params.UsersHandler.MountAdmin(r)
			})
		})
	})

	return r
}
