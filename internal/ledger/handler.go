package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Handler exposes the movement ledger over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger endpoints under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/movimientos-lote", func(r chi.Router) {
		r.Get("/lote/{id}", h.HistorialByLote)
		r.Get("/lote/{id}/resumen", h.Resumen)
		r.Get("/orden-salida/{id}", h.ByOrdenSalida)
		r.Get("/integridad", h.VerificarIntegridad)
	})
}

func (h *Handler) HistorialByLote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movs, err := h.service.HistorialByLote(r.Context(), h.actor(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movs)
}

func (h *Handler) Resumen(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resumen, err := h.service.Resumen(r.Context(), h.actor(r), id)
	if err != nil {
		h.logger.Error("resumen movimientos failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resumen)
}

func (h *Handler) ByOrdenSalida(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movs, err := h.service.ByOrdenSalida(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movs)
}

func (h *Handler) VerificarIntegridad(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(r)
	if !actor.Role.Elevated() {
		httpx.RespondError(w, shared.NewAuthorization("solo los administradores pueden ejecutar la verificación"))
		return
	}
	inconsistencias, err := h.service.VerificarIntegridad(r.Context())
	if err != nil {
		h.logger.Error("verificacion de integridad failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"inconsistencias": inconsistencias,
		"total":           len(inconsistencias),
	})
}

func (h *Handler) actor(r *http.Request) shared.Actor {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidation("identificador inválido: %s", raw)
	}
	return id, nil
}
