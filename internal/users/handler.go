package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/books4all/books4all/internal/auth"
	"github.com/books4all/books4all/internal/platform/httpx"
	"github.com/books4all/books4all/internal/shared"
)

// Handler wires HTTP endpoints for account introspection.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountMe registers the self-inspection route.
func (h *Handler) MountMe(r chi.Router) {
	r.Get("/me", h.handleMe)
}

// MountAdmin registers the admin-only routes.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/", h.handleList)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		// The admission gate attaches the principal before this handler runs.
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, User{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list})
}
