package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Handler exposes login and the current-user endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountPublicRoutes registers the unauthenticated login endpoint.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// MountRoutes registers the authenticated endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.logger.Warn("login rejected", "username", req.Username)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	u, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
