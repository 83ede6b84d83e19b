package production

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Handler exposes production lots over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lote, err := h.service.Create(r.Context(), h.actor(r), req)
	if err != nil {
		h.logger.Error("create lote produccion failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lote)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lotes, meta, err := h.service.List(r.Context(), h.actor(r), filter)
	if err != nil {
		h.logger.Error("list lotes produccion failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, lotes, meta)
}

func (h *Handler) Disponibles(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	lotes, meta, err := h.service.ListDisponibles(r.Context(), h.actor(r), shared.NewPagination(page, limit, 0))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, lotes, meta)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lote, err := h.service.Get(r.Context(), h.actor(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lote)
}

func (h *Handler) GetByNroLote(w http.ResponseWriter, r *http.Request) {
	lote, err := h.service.GetByNroLote(r.Context(), h.actor(r), chi.URLParam(r, "nro"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lote)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateLoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lote, err := h.service.Update(r.Context(), h.actor(r), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lote)
}

func (h *Handler) CambiarEstado(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		Estado string `json:"estado" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lote, err := h.service.CambiarEstado(r.Context(), h.actor(r), id, req.Estado)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lote)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), h.actor(r), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Inventario(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.InventarioPorVariedad(r.Context())
	if err != nil {
		h.logger.Error("inventario por variedad failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Estadisticas(w http.ResponseWriter, r *http.Request) {
	var filter EstadisticasFilter
	if v := r.URL.Query().Get("id_unidad"); v != "" {
		unidad, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.NewValidation("id_unidad inválido: %s", v))
			return
		}
		filter.IDUnidad = &unidad
	}
	stats, err := h.service.Estadisticas(r.Context(), h.actor(r), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
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

func parseListFilter(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	q := r.URL.Query()

	if v := q.Get("estado"); v != "" {
		if !ValidEstadoLote(v) {
			return filter, shared.NewValidation("estado no válido: %s", v)
		}
		estado := EstadoLote(v)
		filter.Estado = &estado
	}
	for name, dst := range map[string]**int64{
		"id_unidad":        &filter.IDUnidad,
		"id_variedad":      &filter.IDVariedad,
		"id_orden_ingreso": &filter.IDOrdenIngreso,
	} {
		if v := q.Get(name); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return filter, shared.NewValidation("%s inválido: %s", name, v)
			}
			*dst = &id
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filter.Pagina = shared.NewPagination(page, limit, 0)
	return filter, nil
}
