package outbound

import (
	"context"
	"time"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates the inventory report cache after stock moves.
// production.Cache satisfies it.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service coordinates outbound order operations.
type Service struct {
	repo  Repository
	cache CachePort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, cache CachePort, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, now: time.Now}
}

// Create registers a shipment. The repository runs it as one transaction; a
// failure in any line leaves no header, lines, decrements or ledger rows.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrdenSalidaRequest) (*OrdenSalida, error) {
	unidad := req.IDUnidad
	if actor.Role.Elevated() {
		if unidad == 0 {
			return nil, shared.NewValidation("debe indicar la unidad de la orden")
		}
	} else {
		if unidad != 0 && unidad != actor.UnitID {
			return nil, shared.NewAuthorization("no puedes crear órdenes de salida en otras unidades")
		}
		unidad = actor.UnitID
	}

	if len(req.Detalles) == 0 {
		return nil, shared.NewValidation("la orden debe incluir al menos un detalle")
	}

	estado := SalidaPendiente
	if req.Estado != "" {
		if !ValidEstadoSalida(req.Estado) {
			return nil, shared.NewValidation("estado no válido: %s", req.Estado)
		}
		estado = EstadoSalida(req.Estado)
	}
	for _, d := range req.Detalles {
		if d.KgPorUnidad.IsNegative() {
			return nil, shared.NewValidation("kg_por_unidad no puede ser negativo")
		}
	}

	orden := &OrdenSalida{
		IDSemillera:      req.IDSemillera,
		IDSemilla:        req.IDSemilla,
		IDCliente:        req.IDCliente,
		IDConductor:      req.IDConductor,
		IDVehiculo:       req.IDVehiculo,
		Deposito:         req.Deposito,
		Observaciones:    req.Observaciones,
		Estado:           estado,
		FechaSalida:      req.FechaSalida,
		CostoServicio:    req.CostoServicio,
		IDUnidad:         unidad,
		IDUsuarioCreador: actor.UserID,
		FechaCreacion:    s.now(),
	}
	if err := s.repo.Create(ctx, orden, req.Detalles); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	s.recordAudit(ctx, actor, "outbound:create", orden)
	return orden, nil
}

// Get loads one order with its lines, enforcing unit scope.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*OrdenSalida, error) {
	orden, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if orden == nil {
		return nil, shared.NewNotFound("orden de salida con ID %d no encontrada", id)
	}
	if err := s.checkScope(actor, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

// GetByNumeroOrden loads one order by its code, enforcing unit scope.
func (s *Service) GetByNumeroOrden(ctx context.Context, actor shared.Actor, numero string) (*OrdenSalida, error) {
	orden, err := s.repo.GetByNumeroOrden(ctx, numero)
	if err != nil {
		return nil, err
	}
	if orden == nil {
		return nil, shared.NewNotFound("orden de salida %s no encontrada", numero)
	}
	if err := s.checkScope(actor, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

// List returns orders visible to the actor.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ListFilter) ([]OrdenSalida, shared.Pagination, error) {
	if !actor.Role.Elevated() {
		unidad := actor.UnitID
		filter.IDUnidad = &unidad
	}
	filter.Pagina = shared.NewPagination(filter.Pagina.Page, filter.Pagina.Limit, 0)
	ordenes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return ordenes, shared.NewPagination(filter.Pagina.Page, filter.Pagina.Limit, total), nil
}

// Update applies a whitelist patch over the header. Completed orders are not
// editable; line items never are.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateOrdenSalidaRequest) (*OrdenSalida, error) {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if orden.Estado == SalidaCompletado {
		return nil, shared.NewBusinessRule("no se puede modificar una orden completada")
	}

	if req.IDCliente != nil {
		orden.IDCliente = *req.IDCliente
	}
	if req.IDConductor != nil {
		orden.IDConductor = *req.IDConductor
	}
	if req.IDVehiculo != nil {
		orden.IDVehiculo = *req.IDVehiculo
	}
	if req.Deposito != nil {
		orden.Deposito = req.Deposito
	}
	if req.Observaciones != nil {
		orden.Observaciones = req.Observaciones
	}
	if req.FechaSalida != nil {
		orden.FechaSalida = *req.FechaSalida
	}
	if req.CostoServicio != nil {
		orden.CostoServicio = req.CostoServicio
	}

	if err := s.repo.Update(ctx, orden); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "outbound:update", orden)
	return orden, nil
}

// CambiarEstado sets the order state after validating the target value.
func (s *Service) CambiarEstado(ctx context.Context, actor shared.Actor, id int64, nuevo string) (*OrdenSalida, error) {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !ValidEstadoSalida(nuevo) {
		return nil, shared.NewValidation("estado no válido: %s", nuevo)
	}
	if err := s.repo.UpdateEstado(ctx, id, EstadoSalida(nuevo)); err != nil {
		return nil, err
	}
	orden.Estado = EstadoSalida(nuevo)
	s.recordAudit(ctx, actor, "outbound:estado", orden)
	return orden, nil
}

// Remove deletes a non-completed order. Its line items go with it; the
// ledger rows it caused stay, with the order reference cleared.
func (s *Service) Remove(ctx context.Context, actor shared.Actor, id int64) error {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if orden.Estado == SalidaCompletado {
		return shared.NewBusinessRule("no se puede eliminar una orden completada")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "outbound:delete", orden)
	return nil
}

// LotesDisponibles lists the lots an order can still draw from, scoped to the
// actor's unit for non-elevated callers.
func (s *Service) LotesDisponibles(ctx context.Context, actor shared.Actor) ([]LoteDisponible, error) {
	var unidad *int64
	if !actor.Role.Elevated() {
		u := actor.UnitID
		unidad = &u
	}
	return s.repo.LotesDisponibles(ctx, unidad)
}

// Estadisticas aggregates orders per state, scoped to the actor's unit for
// non-elevated callers.
func (s *Service) Estadisticas(ctx context.Context, actor shared.Actor, filter EstadisticasFilter) ([]SalidaStat, error) {
	if !actor.Role.Elevated() {
		unidad := actor.UnitID
		filter.IDUnidad = &unidad
	}
	return s.repo.Estadisticas(ctx, filter)
}

func (s *Service) checkScope(actor shared.Actor, orden *OrdenSalida) error {
	if actor.Role.Elevated() {
		return nil
	}
	if orden.IDUnidad != actor.UnitID {
		return shared.NewAuthorization("no tienes acceso a la orden %s", orden.NumeroOrden)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, orden *OrdenSalida) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "orden_salida",
		EntityID: orden.NumeroOrden,
		Meta: map[string]any{
			"id_orden_salida": orden.ID,
			"estado":          orden.Estado,
			"detalles":        len(orden.Detalles),
		},
	})
}
