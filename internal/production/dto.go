package production

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// CreateLoteRequest carries the payload for a new production lot.
type CreateLoteRequest struct {
	IDOrdenIngreso    int64           `json:"id_orden_ingreso" validate:"required,gt=0"`
	IDVariedad        int64           `json:"id_variedad" validate:"required,gt=0"`
	IDCategoriaSalida int64           `json:"id_categoria_salida" validate:"required,gt=0"`
	CantidadUnidades  int64           `json:"cantidad_unidades" validate:"required,gt=0"`
	KgPorUnidad       decimal.Decimal `json:"kg_por_unidad"`
	Presentacion      *string         `json:"presentacion,omitempty" validate:"omitempty,max=100"`
	TipoServicio      *string         `json:"tipo_servicio,omitempty" validate:"omitempty,max=100"`
	FechaProduccion   *time.Time      `json:"fecha_produccion,omitempty"`
	IDUnidad          int64           `json:"id_unidad" validate:"gte=0"`
	Estado            string          `json:"estado,omitempty"`
}

// UpdateLoteRequest is a whitelist patch: only non-nil fields are applied.
// Quantity or per-unit weight changes recompute total_kg; the _original
// snapshots are never touched.
type UpdateLoteRequest struct {
	IDVariedad        *int64           `json:"id_variedad,omitempty" validate:"omitempty,gt=0"`
	IDCategoriaSalida *int64           `json:"id_categoria_salida,omitempty" validate:"omitempty,gt=0"`
	CantidadUnidades  *int64           `json:"cantidad_unidades,omitempty" validate:"omitempty,gte=0"`
	KgPorUnidad       *decimal.Decimal `json:"kg_por_unidad,omitempty"`
	Presentacion      *string          `json:"presentacion,omitempty" validate:"omitempty,max=100"`
	TipoServicio      *string          `json:"tipo_servicio,omitempty" validate:"omitempty,max=100"`
	FechaProduccion   *time.Time       `json:"fecha_produccion,omitempty"`
}

// ListFilter narrows lot listings.
type ListFilter struct {
	Estado         *EstadoLote
	IDUnidad       *int64
	IDVariedad     *int64
	IDOrdenIngreso *int64
	Pagina         shared.Pagination
}

// EstadisticasFilter narrows the per-state aggregation.
type EstadisticasFilter struct {
	IDUnidad *int64
}
