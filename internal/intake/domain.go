// Package intake manages the lifecycle of intake orders (órdenes de ingreso):
// deliveries of raw seed from cooperators. The net weight of an order is the
// budget available to the production lots derived from it.
package intake

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado enumerates intake order states.
type Estado string

const (
	EstadoPendiente  Estado = "pendiente"
	EstadoEnProceso  Estado = "en_proceso"
	EstadoCompletado Estado = "completado"
	EstadoCancelado  Estado = "cancelado"
)

// Terminal reports whether no further manual transition is allowed.
func (e Estado) Terminal() bool {
	return e == EstadoCompletado || e == EstadoCancelado
}

// ValidEstado reports whether s names a known state.
func ValidEstado(s string) bool {
	switch Estado(s) {
	case EstadoPendiente, EstadoEnProceso, EstadoCompletado, EstadoCancelado:
		return true
	}
	return false
}

// LotChange tells OnLotChanged what happened to a production lot, so the
// recompute can decide whether a manually completed order may be downgraded.
type LotChange string

const (
	LotCreated LotChange = "created"
	LotUpdated LotChange = "updated"
	LotDeleted LotChange = "deleted"
)

// OrdenIngreso models one delivery of raw seed.
type OrdenIngreso struct {
	ID                 int64      `json:"id_orden_ingreso"`
	NumeroOrden        string     `json:"numero_orden"`
	IDSemillera        int64      `json:"id_semillera"`
	IDCooperador       int64      `json:"id_cooperador"`
	IDConductor        int64      `json:"id_conductor"`
	IDVehiculo         int64      `json:"id_vehiculo"`
	IDSemilla          int64      `json:"id_semilla"`
	IDVariedad         int64      `json:"id_variedad"`
	IDCategoriaIngreso int64      `json:"id_categoria_ingreso"`
	NroLoteCampo       string     `json:"nro_lote_campo"`
	NroCupon           string     `json:"nro_cupon"`
	LugarIngreso       *string    `json:"lugar_ingreso,omitempty"`
	HoraIngreso        *time.Time `json:"hora_ingreso,omitempty"`
	LugarSalida        *string    `json:"lugar_salida,omitempty"`
	HoraSalida         *time.Time `json:"hora_salida,omitempty"`

	// Pesaje
	PesoBruto   decimal.Decimal `json:"peso_bruto"`
	PesoTara    decimal.Decimal `json:"peso_tara"`
	PesoNeto    decimal.Decimal `json:"peso_neto"`
	PesoLiquido decimal.Decimal `json:"peso_liquido"`

	// Laboratorio
	PorcentajeHumedad     decimal.Decimal `json:"porcentaje_humedad"`
	PorcentajeImpureza    decimal.Decimal `json:"porcentaje_impureza"`
	PesoHectolitrico      decimal.Decimal `json:"peso_hectolitrico"`
	PorcentajeGranoDanado decimal.Decimal `json:"porcentaje_grano_danado"`
	PorcentajeGranoVerde  decimal.Decimal `json:"porcentaje_grano_verde"`

	Observaciones      *string   `json:"observaciones,omitempty"`
	Estado             Estado    `json:"estado"`
	IDUnidad           int64     `json:"id_unidad"`
	IDUsuarioCreador   int64     `json:"id_usuario_creador"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	FechaActualizacion time.Time `json:"fecha_actualizacion"`
}

// EstadoStat aggregates orders per state.
type EstadoStat struct {
	Estado    Estado          `json:"estado"`
	Cantidad  int64           `json:"cantidad"`
	PesoTotal decimal.Decimal `json:"peso_total"`
}

// LoteResumen is the per-lot slice of a production summary.
type LoteResumen struct {
	NroLote          string          `json:"nro_lote"`
	CantidadUnidades int64           `json:"cantidad_unidades"`
	KgPorUnidad      decimal.Decimal `json:"kg_por_unidad"`
	TotalKg          decimal.Decimal `json:"total_kg"`
	TotalKgOriginal  decimal.Decimal `json:"total_kg_original"`
	Presentacion     *string         `json:"presentacion,omitempty"`
}

// ResumenProduccion summarises how much of an order's budget has been used.
type ResumenProduccion struct {
	NumeroOrden         string          `json:"numero_orden"`
	PesoNeto            decimal.Decimal `json:"peso_neto"`
	TotalKgProducido    decimal.Decimal `json:"total_kg_producido"`
	TotalUnidades       int64           `json:"total_unidades_producidas"`
	CantidadLotes       int             `json:"cantidad_lotes"`
	PesoDisponible      decimal.Decimal `json:"peso_disponible"`
	PorcentajeUtilizado decimal.Decimal `json:"porcentaje_utilizado"`
	Lotes               []LoteResumen   `json:"lotes"`
}
