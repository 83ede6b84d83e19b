package production

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/intake"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates production lot operations.
type Service struct {
	repo     Repository
	listener OrderStateListener
	cache    *Cache
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, listener OrderStateListener, cache *Cache, audit AuditPort) *Service {
	return &Service{repo: repo, listener: listener, cache: cache, audit: audit, now: time.Now}
}

// Create admits a new lot against its parent order's budget. The repository
// runs the admission atomically; afterwards the parent state is re-derived
// and the inventory cache invalidated.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateLoteRequest) (*LoteProduccion, error) {
	unidad := req.IDUnidad
	if actor.Role.Elevated() {
		if unidad == 0 {
			return nil, shared.NewValidation("debe indicar la unidad del lote")
		}
	} else {
		if unidad != 0 && unidad != actor.UnitID {
			return nil, shared.NewAuthorization("no puedes crear lotes en otras unidades")
		}
		unidad = actor.UnitID
	}

	if !req.KgPorUnidad.IsPositive() {
		return nil, shared.NewValidation("kg_por_unidad debe ser mayor que cero")
	}
	estado := LoteDisponible
	if req.Estado != "" {
		if !ValidEstadoLote(req.Estado) {
			return nil, shared.NewValidation("estado no válido: %s", req.Estado)
		}
		estado = EstadoLote(req.Estado)
	}

	total := req.KgPorUnidad.Mul(decimal.NewFromInt(req.CantidadUnidades))
	lote := &LoteProduccion{
		IDOrdenIngreso:    req.IDOrdenIngreso,
		IDVariedad:        req.IDVariedad,
		IDCategoriaSalida: req.IDCategoriaSalida,
		CantidadUnidades:  req.CantidadUnidades,
		KgPorUnidad:       req.KgPorUnidad,
		TotalKg:           total,
		CantidadOriginal:  req.CantidadUnidades,
		TotalKgOriginal:   total,
		Presentacion:      req.Presentacion,
		TipoServicio:      req.TipoServicio,
		Estado:            estado,
		FechaProduccion:   req.FechaProduccion,
		IDUnidad:          unidad,
		IDUsuarioCreador:  actor.UserID,
		FechaCreacion:     s.now(),
	}
	if err := s.repo.Create(ctx, lote); err != nil {
		return nil, err
	}

	if err := s.listener.OnLotChanged(ctx, lote.IDOrdenIngreso, intake.LotCreated); err != nil {
		return nil, fmt.Errorf("recalcular estado de la orden %d: %w", lote.IDOrdenIngreso, err)
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actor, "production:create", lote)
	return lote, nil
}

// Get loads one lot, enforcing unit scope.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*LoteProduccion, error) {
	lote, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lote == nil {
		return nil, shared.NewNotFound("lote de producción con ID %d no encontrado", id)
	}
	if err := s.checkScope(actor, lote); err != nil {
		return nil, err
	}
	return lote, nil
}

// GetByNroLote loads one lot by its code, enforcing unit scope.
func (s *Service) GetByNroLote(ctx context.Context, actor shared.Actor, nro string) (*LoteProduccion, error) {
	lote, err := s.repo.GetByNroLote(ctx, nro)
	if err != nil {
		return nil, err
	}
	if lote == nil {
		return nil, shared.NewNotFound("lote %s no encontrado", nro)
	}
	if err := s.checkScope(actor, lote); err != nil {
		return nil, err
	}
	return lote, nil
}

// List returns lots visible to the actor.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ListFilter) ([]LoteProduccion, shared.Pagination, error) {
	if !actor.Role.Elevated() {
		unidad := actor.UnitID
		filter.IDUnidad = &unidad
	}
	filter.Pagina = shared.NewPagination(filter.Pagina.Page, filter.Pagina.Limit, 0)
	lotes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return lotes, shared.NewPagination(filter.Pagina.Page, filter.Pagina.Limit, total), nil
}

// ListDisponibles returns lots still open for sale.
func (s *Service) ListDisponibles(ctx context.Context, actor shared.Actor, pagina shared.Pagination) ([]LoteProduccion, shared.Pagination, error) {
	estado := LoteDisponible
	return s.List(ctx, actor, ListFilter{Estado: &estado, Pagina: pagina})
}

// Update applies a whitelist patch. Sold-out lots are immutable. Quantity or
// per-unit weight changes recompute total_kg from the patched values; the
// _original snapshots never move.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateLoteRequest) (*LoteProduccion, error) {
	lote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lote.Estado == LoteVendido {
		return nil, shared.NewBusinessRule("no se puede modificar el lote vendido %s", lote.NroLote)
	}

	prevCantidad := lote.CantidadUnidades
	prevTotal := lote.TotalKg

	if req.IDVariedad != nil {
		lote.IDVariedad = *req.IDVariedad
	}
	if req.IDCategoriaSalida != nil {
		lote.IDCategoriaSalida = *req.IDCategoriaSalida
	}
	if req.CantidadUnidades != nil {
		lote.CantidadUnidades = *req.CantidadUnidades
	}
	if req.KgPorUnidad != nil {
		lote.KgPorUnidad = *req.KgPorUnidad
	}
	if req.Presentacion != nil {
		lote.Presentacion = req.Presentacion
	}
	if req.TipoServicio != nil {
		lote.TipoServicio = req.TipoServicio
	}
	if req.FechaProduccion != nil {
		lote.FechaProduccion = req.FechaProduccion
	}

	if !lote.KgPorUnidad.IsPositive() {
		return nil, shared.NewValidation("kg_por_unidad debe ser mayor que cero")
	}
	if lote.CantidadUnidades < 0 {
		return nil, shared.NewValidation("cantidad_unidades no puede ser negativa")
	}
	if req.CantidadUnidades != nil || req.KgPorUnidad != nil {
		lote.TotalKg = lote.KgPorUnidad.Mul(decimal.NewFromInt(lote.CantidadUnidades))
	}

	if err := s.repo.Update(ctx, lote, prevCantidad, prevTotal); err != nil {
		return nil, fmt.Errorf("actualizar lote de producción: %w", err)
	}
	if err := s.listener.OnLotChanged(ctx, lote.IDOrdenIngreso, intake.LotUpdated); err != nil {
		return nil, fmt.Errorf("recalcular estado de la orden %d: %w", lote.IDOrdenIngreso, err)
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actor, "production:update", lote)
	return lote, nil
}

// CambiarEstado sets the lot state after validating the target value.
func (s *Service) CambiarEstado(ctx context.Context, actor shared.Actor, id int64, nuevo string) (*LoteProduccion, error) {
	lote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !ValidEstadoLote(nuevo) {
		return nil, shared.NewValidation("estado no válido: %s", nuevo)
	}
	if err := s.repo.UpdateEstado(ctx, id, EstadoLote(nuevo)); err != nil {
		return nil, err
	}
	lote.Estado = EstadoLote(nuevo)
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actor, "production:estado", lote)
	return lote, nil
}

// Remove deletes a lot that was never sold out and re-derives the parent
// order state.
func (s *Service) Remove(ctx context.Context, actor shared.Actor, id int64) error {
	lote, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if lote.Estado == LoteVendido {
		return shared.NewBusinessRule("no se puede eliminar el lote vendido %s", lote.NroLote)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.listener.OnLotChanged(ctx, lote.IDOrdenIngreso, intake.LotDeleted); err != nil {
		return fmt.Errorf("recalcular estado de la orden %d: %w", lote.IDOrdenIngreso, err)
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actor, "production:delete", lote)
	return nil
}

// InventarioPorVariedad reports open stock per variety and category, served
// from the cache when warm.
func (s *Service) InventarioPorVariedad(ctx context.Context) ([]InventarioVariedad, error) {
	var out []InventarioVariedad
	err := s.cache.FetchJSON(ctx, []string{"production", "inventario", "variedad"}, &out,
		func(ctx context.Context) (any, error) {
			return s.repo.InventarioPorVariedad(ctx)
		})
	return out, err
}

// Estadisticas aggregates lots per state, scoped to the actor's unit for
// non-elevated callers.
func (s *Service) Estadisticas(ctx context.Context, actor shared.Actor, filter EstadisticasFilter) ([]LoteStat, error) {
	if !actor.Role.Elevated() {
		unidad := actor.UnitID
		filter.IDUnidad = &unidad
	}
	return s.repo.Estadisticas(ctx, filter)
}

func (s *Service) checkScope(actor shared.Actor, lote *LoteProduccion) error {
	if actor.Role.Elevated() {
		return nil
	}
	if lote.IDUnidad != actor.UnitID {
		return shared.NewAuthorization("no tienes acceso al lote %s", lote.NroLote)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, lote *LoteProduccion) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "lote_produccion",
		EntityID: lote.NroLote,
		Meta: map[string]any{
			"id_lote_produccion": lote.ID,
			"id_orden_ingreso":   lote.IDOrdenIngreso,
			"estado":             lote.Estado,
		},
	})
}
