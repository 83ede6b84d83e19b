// Package production manages production lots (lotes de producción): processed
// batches cut from an intake order's net weight. Lot creation consumes the
// parent order's budget and every stock mutation leaves a ledger row behind.
package production

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// EstadoLote enumerates production lot states.
type EstadoLote string

const (
	LoteDisponible          EstadoLote = "disponible"
	LoteReservado           EstadoLote = "reservado"
	LoteParcialmenteVendido EstadoLote = "parcialmente_vendido"
	LoteVendido             EstadoLote = "vendido"
	LoteDescartado          EstadoLote = "descartado"
)

// ValidEstadoLote reports whether s names a known lot state.
func ValidEstadoLote(s string) bool {
	switch EstadoLote(s) {
	case LoteDisponible, LoteReservado, LoteParcialmenteVendido, LoteVendido, LoteDescartado:
		return true
	}
	return false
}

// LoteProduccion models one processed batch. cantidad_unidades and total_kg
// track the remaining stock; the _original columns are immutable snapshots
// taken at creation, so later sales never free up intake budget.
type LoteProduccion struct {
	ID                 int64           `json:"id_lote_produccion"`
	IDOrdenIngreso     int64           `json:"id_orden_ingreso"`
	IDVariedad         int64           `json:"id_variedad"`
	IDCategoriaSalida  int64           `json:"id_categoria_salida"`
	NroLote            string          `json:"nro_lote"`
	CantidadUnidades   int64           `json:"cantidad_unidades"`
	KgPorUnidad        decimal.Decimal `json:"kg_por_unidad"`
	TotalKg            decimal.Decimal `json:"total_kg"`
	CantidadOriginal   int64           `json:"cantidad_original"`
	TotalKgOriginal    decimal.Decimal `json:"total_kg_original"`
	Presentacion       *string         `json:"presentacion,omitempty"`
	TipoServicio       *string         `json:"tipo_servicio,omitempty"`
	Estado             EstadoLote      `json:"estado"`
	FechaProduccion    *time.Time      `json:"fecha_produccion,omitempty"`
	IDUnidad           int64           `json:"id_unidad"`
	IDUsuarioCreador   int64           `json:"id_usuario_creador"`
	FechaCreacion      time.Time       `json:"fecha_creacion"`
	FechaActualizacion time.Time       `json:"fecha_actualizacion"`
}

// ParentOrden is the slice of the intake order the budget check needs.
type ParentOrden struct {
	ID          int64
	NumeroOrden string
	Estado      string
	PesoNeto    decimal.Decimal
	IDSemillera int64
	IDUnidad    int64
}

// CheckBudget verifies that adding nuevoKg to the kg already cut from the
// order stays within its net weight. The error names every figure involved.
func CheckBudget(parent ParentOrden, usadoKg, nuevoKg decimal.Decimal) error {
	total := usadoKg.Add(nuevoKg)
	if total.GreaterThan(parent.PesoNeto) {
		return shared.NewBusinessRule(
			"el lote excede el peso disponible de la orden %s: presupuesto %s kg, utilizado %s kg, nuevo lote %s kg, excedente %s kg",
			parent.NumeroOrden, parent.PesoNeto, usadoKg, nuevoKg, total.Sub(parent.PesoNeto))
	}
	return nil
}

// InventarioVariedad aggregates available stock per variety and category.
type InventarioVariedad struct {
	IDVariedad     int64           `json:"id_variedad"`
	Variedad       string          `json:"variedad"`
	Semilla        string          `json:"semilla"`
	IDCategoria    int64           `json:"id_categoria"`
	Categoria      string          `json:"categoria"`
	TotalUnidades  int64           `json:"total_unidades"`
	TotalKg        decimal.Decimal `json:"total_kg"`
	CantidadLotes  int64           `json:"cantidad_lotes"`
}

// LoteStat aggregates lots per state.
type LoteStat struct {
	Estado        EstadoLote      `json:"estado"`
	Cantidad      int64           `json:"cantidad"`
	PesoTotal     decimal.Decimal `json:"peso_total"`
	TotalUnidades int64           `json:"total_unidades"`
}
