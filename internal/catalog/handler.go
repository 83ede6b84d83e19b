package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Handler exposes the ten catalogs over HTTP under a shared route shape.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers catalog endpoints under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalogos/{tipo}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Patch("/{id}/activo", h.SetActivo)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tipo, err := pathTipo(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	soloActivos := r.URL.Query().Get("incluir_inactivos") != "true"
	registros, err := h.service.List(r.Context(), tipo, soloActivos)
	if err != nil {
		h.logger.Error("list catalog failed", "tipo", tipo, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, registros)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tipo, id, err := pathTipoID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ent, err := h.service.Get(r.Context(), tipo, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ent)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tipo, err := pathTipo(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ent, err := h.service.Create(r.Context(), actor(r), tipo, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ent)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tipo, id, err := pathTipoID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ent, err := h.service.Update(r.Context(), actor(r), tipo, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ent)
}

func (h *Handler) SetActivo(w http.ResponseWriter, r *http.Request) {
	tipo, id, err := pathTipoID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		Activo *bool `json:"activo" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Activo == nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	ent, err := h.service.SetActivo(r.Context(), actor(r), tipo, id, *req.Activo)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ent)
}

func actor(r *http.Request) shared.Actor {
	a, _ := shared.ActorFromContext(r.Context())
	return a
}

func pathTipo(r *http.Request) (Tipo, error) {
	raw := chi.URLParam(r, "tipo")
	if !ValidTipo(raw) {
		return "", shared.NewValidation("catálogo desconocido: %s", raw)
	}
	return Tipo(raw), nil
}

func pathTipoID(r *http.Request) (Tipo, int64, error) {
	tipo, err := pathTipo(r)
	if err != nil {
		return "", 0, err
	}
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, shared.NewValidation("identificador inválido: %s", raw)
	}
	return tipo, id, nil
}
