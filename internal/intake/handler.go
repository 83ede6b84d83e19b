package intake

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Handler exposes intake orders over HTTP.
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
	var req CreateOrdenIngresoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	orden, err := h.service.Create(r.Context(), h.actor(r), req)
	if err != nil {
		h.logger.Error("create orden ingreso failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orden)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ordenes, meta, err := h.service.List(r.Context(), h.actor(r), filter)
	if err != nil {
		h.logger.Error("list ordenes ingreso failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, ordenes, meta)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	orden, err := h.service.Get(r.Context(), h.actor(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orden)
}

func (h *Handler) GetByNumero(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	orden, err := h.service.GetByNumeroOrden(r.Context(), h.actor(r), numero)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orden)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateOrdenIngresoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	orden, err := h.service.Update(r.Context(), h.actor(r), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orden)
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
	orden, err := h.service.CambiarEstado(r.Context(), h.actor(r), id, req.Estado)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orden)
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
		h.logger.Error("estadisticas ordenes ingreso failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) ResumenProduccion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resumen, err := h.service.ResumenProduccion(r.Context(), h.actor(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resumen)
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
		if !ValidEstado(v) {
			return filter, shared.NewValidation("estado no válido: %s", v)
		}
		estado := Estado(v)
		filter.Estado = &estado
	}
	if v := q.Get("id_unidad"); v != "" {
		unidad, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, shared.NewValidation("id_unidad inválido: %s", v)
		}
		filter.IDUnidad = &unidad
	}
	if v := q.Get("fecha_desde"); v != "" {
		fecha, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, shared.NewValidation("fecha_desde inválida: %s", v)
		}
		filter.FechaDesde = &fecha
	}
	if v := q.Get("fecha_hasta"); v != "" {
		fecha, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, shared.NewValidation("fecha_hasta inválida: %s", v)
		}
		filter.FechaHasta = &fecha
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filter.Pagina = shared.NewPagination(page, limit, 0)
	return filter, nil
}
