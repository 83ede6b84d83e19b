package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates intake order operations.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

var cien = decimal.NewFromInt(100)

// Create registers a new delivery. Non-elevated callers may only create in
// their own unit; elevated callers must name a unit explicitly.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrdenIngresoRequest) (*OrdenIngreso, error) {
	unidad := req.IDUnidad
	if actor.Role.Elevated() {
		if unidad == 0 {
			return nil, shared.NewValidation("debe indicar la unidad de la orden")
		}
	} else {
		if unidad != 0 && unidad != actor.UnitID {
			return nil, shared.NewAuthorization("no puedes crear órdenes en otras unidades")
		}
		unidad = actor.UnitID
	}

	if err := validarMedidas(req.PesoBruto, req.PesoTara, req.PesoNeto, req.PesoLiquido, req.PesoHectolitrico); err != nil {
		return nil, err
	}
	if err := validarPorcentajes(map[string]decimal.Decimal{
		"porcentaje_humedad":      req.PorcentajeHumedad,
		"porcentaje_impureza":     req.PorcentajeImpureza,
		"porcentaje_grano_danado": req.PorcentajeGranoDanado,
		"porcentaje_grano_verde":  req.PorcentajeGranoVerde,
	}); err != nil {
		return nil, err
	}

	estado := EstadoPendiente
	if req.Estado != "" {
		if !ValidEstado(req.Estado) {
			return nil, shared.NewValidation("estado no válido: %s", req.Estado)
		}
		estado = Estado(req.Estado)
	}

	orden := &OrdenIngreso{
		IDSemillera:           req.IDSemillera,
		IDCooperador:          req.IDCooperador,
		IDConductor:           req.IDConductor,
		IDVehiculo:            req.IDVehiculo,
		IDSemilla:             req.IDSemilla,
		IDVariedad:            req.IDVariedad,
		IDCategoriaIngreso:    req.IDCategoriaIngreso,
		NroLoteCampo:          req.NroLoteCampo,
		NroCupon:              req.NroCupon,
		LugarIngreso:          req.LugarIngreso,
		HoraIngreso:           req.HoraIngreso,
		LugarSalida:           req.LugarSalida,
		HoraSalida:            req.HoraSalida,
		PesoBruto:             req.PesoBruto,
		PesoTara:              req.PesoTara,
		PesoNeto:              req.PesoNeto,
		PesoLiquido:           req.PesoLiquido,
		PorcentajeHumedad:     req.PorcentajeHumedad,
		PorcentajeImpureza:    req.PorcentajeImpureza,
		PesoHectolitrico:      req.PesoHectolitrico,
		PorcentajeGranoDanado: req.PorcentajeGranoDanado,
		PorcentajeGranoVerde:  req.PorcentajeGranoVerde,
		Observaciones:         req.Observaciones,
		Estado:                estado,
		IDUnidad:              unidad,
		IDUsuarioCreador:      actor.UserID,
		FechaCreacion:         s.now(),
	}
	if err := s.repo.Create(ctx, orden); err != nil {
		return nil, fmt.Errorf("crear orden de ingreso: %w", err)
	}
	s.recordAudit(ctx, actor, "intake:create", orden)
	return orden, nil
}

// Get loads one order, enforcing unit scope.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*OrdenIngreso, error) {
	orden, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if orden == nil {
		return nil, shared.NewNotFound("orden de ingreso con ID %d no encontrada", id)
	}
	if err := s.checkScope(actor, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

// GetByNumeroOrden loads one order by its code, enforcing unit scope.
func (s *Service) GetByNumeroOrden(ctx context.Context, actor shared.Actor, numero string) (*OrdenIngreso, error) {
	orden, err := s.repo.GetByNumeroOrden(ctx, numero)
	if err != nil {
		return nil, err
	}
	if orden == nil {
		return nil, shared.NewNotFound("orden de ingreso %s no encontrada", numero)
	}
	if err := s.checkScope(actor, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

// List returns orders visible to the actor.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ListFilter) ([]OrdenIngreso, shared.Pagination, error) {
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

// Update applies a whitelist patch. The stricter policy applies: a completed
// order is never editable, and neither is an order that already has lots.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateOrdenIngresoRequest) (*OrdenIngreso, error) {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if orden.Estado == EstadoCompletado {
		return nil, shared.NewBusinessRule("no se puede modificar una orden completada")
	}
	lotes, err := s.repo.CountLotes(ctx, id)
	if err != nil {
		return nil, err
	}
	if lotes > 0 {
		return nil, shared.NewBusinessRule("no se puede modificar la orden %s: tiene %d lotes de producción asociados", orden.NumeroOrden, lotes)
	}

	applyPatch(orden, req)

	if err := validarMedidas(orden.PesoBruto, orden.PesoTara, orden.PesoNeto, orden.PesoLiquido, orden.PesoHectolitrico); err != nil {
		return nil, err
	}
	if err := validarPorcentajes(map[string]decimal.Decimal{
		"porcentaje_humedad":      orden.PorcentajeHumedad,
		"porcentaje_impureza":     orden.PorcentajeImpureza,
		"porcentaje_grano_danado": orden.PorcentajeGranoDanado,
		"porcentaje_grano_verde":  orden.PorcentajeGranoVerde,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, orden); err != nil {
		return nil, fmt.Errorf("actualizar orden de ingreso: %w", err)
	}
	s.recordAudit(ctx, actor, "intake:update", orden)
	return orden, nil
}

// CambiarEstado performs a manual transition. Only "completado" and
// "cancelado" are valid manual targets; both are irreversible.
func (s *Service) CambiarEstado(ctx context.Context, actor shared.Actor, id int64, nuevo string) (*OrdenIngreso, error) {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	objetivo := Estado(nuevo)
	if objetivo != EstadoCompletado && objetivo != EstadoCancelado {
		return nil, shared.NewValidation("estado no válido para transición manual: %s", nuevo)
	}
	if orden.Estado.Terminal() {
		return nil, shared.NewBusinessRule("la orden %s ya está en estado %s: la transición es irreversible", orden.NumeroOrden, orden.Estado)
	}

	lotes, err := s.repo.CountLotes(ctx, id)
	if err != nil {
		return nil, err
	}
	switch objetivo {
	case EstadoCancelado:
		if lotes > 0 {
			return nil, shared.NewBusinessRule("no se puede cancelar la orden %s: tiene %d lotes de producción asociados", orden.NumeroOrden, lotes)
		}
	case EstadoCompletado:
		if lotes == 0 {
			return nil, shared.NewBusinessRule("no se puede completar la orden %s sin lotes de producción", orden.NumeroOrden)
		}
	}

	if err := s.repo.UpdateEstado(ctx, id, objetivo); err != nil {
		return nil, err
	}
	orden.Estado = objetivo
	s.recordAudit(ctx, actor, "intake:estado", orden)
	return orden, nil
}

// Remove deletes an order that is not completed and has no lots.
func (s *Service) Remove(ctx context.Context, actor shared.Actor, id int64) error {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if orden.Estado == EstadoCompletado {
		return shared.NewBusinessRule("no se puede eliminar una orden completada")
	}
	lotes, err := s.repo.CountLotes(ctx, id)
	if err != nil {
		return err
	}
	if lotes > 0 {
		return shared.NewBusinessRule("no se puede eliminar la orden %s: tiene %d lotes de producción asociados", orden.NumeroOrden, lotes)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "intake:delete", orden)
	return nil
}

// OnLotChanged re-derives the order state from its lots. It implements the
// listener port the production engine calls after every lot mutation.
//
// A manually completed order keeps its state while lots are created or
// updated; deleting lots may downgrade it once the consumed budget drops
// below 100% (or to "pendiente" when the last lot disappears). A cancelled
// order is never recomputed.
func (s *Service) OnLotChanged(ctx context.Context, ordenID int64, change LotChange) error {
	orden, err := s.repo.Get(ctx, ordenID)
	if err != nil {
		return err
	}
	if orden == nil {
		return shared.NewNotFound("orden de ingreso con ID %d no encontrada", ordenID)
	}
	if orden.Estado == EstadoCancelado {
		return nil
	}

	lotes, err := s.repo.CountLotes(ctx, ordenID)
	if err != nil {
		return err
	}
	consumido, err := s.repo.SumLotesKgOriginal(ctx, ordenID)
	if err != nil {
		return err
	}

	var nuevo Estado
	switch {
	case lotes == 0:
		nuevo = EstadoPendiente
	case consumido.GreaterThanOrEqual(orden.PesoNeto):
		nuevo = EstadoCompletado
	case orden.Estado == EstadoCompletado && change != LotDeleted:
		// Manual completion stands while lots are only added or edited.
		nuevo = EstadoCompletado
	default:
		nuevo = EstadoEnProceso
	}

	if nuevo == orden.Estado {
		return nil
	}
	return s.repo.UpdateEstado(ctx, ordenID, nuevo)
}

// Estadisticas aggregates orders per state, scoped to the actor's unit for
// non-elevated callers.
func (s *Service) Estadisticas(ctx context.Context, actor shared.Actor, filter EstadisticasFilter) ([]EstadoStat, error) {
	if !actor.Role.Elevated() {
		unidad := actor.UnitID
		filter.IDUnidad = &unidad
	}
	return s.repo.Estadisticas(ctx, filter)
}

// ResumenProduccion reports how much of the order's budget the lots consumed.
func (s *Service) ResumenProduccion(ctx context.Context, actor shared.Actor, id int64) (*ResumenProduccion, error) {
	orden, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	lotes, err := s.repo.ResumenLotes(ctx, id)
	if err != nil {
		return nil, err
	}

	totalKg := decimal.Zero
	var totalUnidades int64
	for _, l := range lotes {
		totalKg = totalKg.Add(l.TotalKg)
		totalUnidades += l.CantidadUnidades
	}
	porcentaje := decimal.Zero
	if orden.PesoNeto.IsPositive() {
		porcentaje = totalKg.Div(orden.PesoNeto).Mul(cien).Round(2)
	}
	return &ResumenProduccion{
		NumeroOrden:         orden.NumeroOrden,
		PesoNeto:            orden.PesoNeto,
		TotalKgProducido:    totalKg,
		TotalUnidades:       totalUnidades,
		CantidadLotes:       len(lotes),
		PesoDisponible:      orden.PesoNeto.Sub(totalKg),
		PorcentajeUtilizado: porcentaje,
		Lotes:               lotes,
	}, nil
}

func (s *Service) checkScope(actor shared.Actor, orden *OrdenIngreso) error {
	if actor.Role.Elevated() {
		return nil
	}
	if orden.IDUnidad != actor.UnitID {
		return shared.NewAuthorization("no tienes acceso a la orden %s", orden.NumeroOrden)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, orden *OrdenIngreso) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "orden_ingreso",
		EntityID: orden.NumeroOrden,
		Meta: map[string]any{
			"id_orden_ingreso": orden.ID,
			"estado":           orden.Estado,
			"id_unidad":        orden.IDUnidad,
		},
	})
}

func applyPatch(orden *OrdenIngreso, req UpdateOrdenIngresoRequest) {
	if req.IDSemillera != nil {
		orden.IDSemillera = *req.IDSemillera
	}
	if req.IDCooperador != nil {
		orden.IDCooperador = *req.IDCooperador
	}
	if req.IDConductor != nil {
		orden.IDConductor = *req.IDConductor
	}
	if req.IDVehiculo != nil {
		orden.IDVehiculo = *req.IDVehiculo
	}
	if req.IDSemilla != nil {
		orden.IDSemilla = *req.IDSemilla
	}
	if req.IDVariedad != nil {
		orden.IDVariedad = *req.IDVariedad
	}
	if req.IDCategoriaIngreso != nil {
		orden.IDCategoriaIngreso = *req.IDCategoriaIngreso
	}
	if req.NroLoteCampo != nil {
		orden.NroLoteCampo = *req.NroLoteCampo
	}
	if req.NroCupon != nil {
		orden.NroCupon = *req.NroCupon
	}
	if req.LugarIngreso != nil {
		orden.LugarIngreso = req.LugarIngreso
	}
	if req.HoraIngreso != nil {
		orden.HoraIngreso = req.HoraIngreso
	}
	if req.LugarSalida != nil {
		orden.LugarSalida = req.LugarSalida
	}
	if req.HoraSalida != nil {
		orden.HoraSalida = req.HoraSalida
	}
	if req.PesoBruto != nil {
		orden.PesoBruto = *req.PesoBruto
	}
	if req.PesoTara != nil {
		orden.PesoTara = *req.PesoTara
	}
	if req.PesoNeto != nil {
		orden.PesoNeto = *req.PesoNeto
	}
	if req.PesoLiquido != nil {
		orden.PesoLiquido = *req.PesoLiquido
	}
	if req.PorcentajeHumedad != nil {
		orden.PorcentajeHumedad = *req.PorcentajeHumedad
	}
	if req.PorcentajeImpureza != nil {
		orden.PorcentajeImpureza = *req.PorcentajeImpureza
	}
	if req.PesoHectolitrico != nil {
		orden.PesoHectolitrico = *req.PesoHectolitrico
	}
	if req.PorcentajeGranoDanado != nil {
		orden.PorcentajeGranoDanado = *req.PorcentajeGranoDanado
	}
	if req.PorcentajeGranoVerde != nil {
		orden.PorcentajeGranoVerde = *req.PorcentajeGranoVerde
	}
	if req.Observaciones != nil {
		orden.Observaciones = req.Observaciones
	}
}

func validarMedidas(pesos ...decimal.Decimal) error {
	for _, p := range pesos {
		if p.IsNegative() {
			return shared.NewValidation("los pesos no pueden ser negativos")
		}
	}
	return nil
}

func validarPorcentajes(campos map[string]decimal.Decimal) error {
	for nombre, v := range campos {
		if v.IsNegative() || v.GreaterThan(cien) {
			return shared.NewValidation("%s debe estar entre 0 y 100, se recibió %s", nombre, v)
		}
	}
	return nil
}
