package outbound

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// CreateOrdenSalidaRequest carries the payload for a new shipment.
type CreateOrdenSalidaRequest struct {
	IDSemillera   int64            `json:"id_semillera" validate:"required,gt=0"`
	IDSemilla     int64            `json:"id_semilla" validate:"required,gt=0"`
	IDCliente     int64            `json:"id_cliente" validate:"required,gt=0"`
	IDConductor   int64            `json:"id_conductor" validate:"required,gt=0"`
	IDVehiculo    int64            `json:"id_vehiculo" validate:"required,gt=0"`
	Deposito      *string          `json:"deposito,omitempty" validate:"omitempty,max=200"`
	Observaciones *string          `json:"observaciones,omitempty"`
	Estado        string           `json:"estado,omitempty"`
	FechaSalida   time.Time        `json:"fecha_salida" validate:"required"`
	CostoServicio *decimal.Decimal `json:"costo_servicio_total,omitempty"`
	IDUnidad      int64            `json:"id_unidad" validate:"gte=0"`

	Detalles []DetalleRequest `json:"detalles" validate:"required,min=1,dive"`
}

// DetalleRequest is one requested lot draw-down.
type DetalleRequest struct {
	IDLoteProduccion int64           `json:"id_lote_produccion" validate:"required,gt=0"`
	CantidadUnidades int64           `json:"cantidad_unidades" validate:"required,gt=0"`
	KgPorUnidad      decimal.Decimal `json:"kg_por_unidad"`
	Tamano           *string         `json:"tamano,omitempty" validate:"omitempty,max=100"`
}

// UpdateOrdenSalidaRequest is a whitelist patch over the header; line items
// are immutable once written.
type UpdateOrdenSalidaRequest struct {
	IDCliente     *int64           `json:"id_cliente,omitempty" validate:"omitempty,gt=0"`
	IDConductor   *int64           `json:"id_conductor,omitempty" validate:"omitempty,gt=0"`
	IDVehiculo    *int64           `json:"id_vehiculo,omitempty" validate:"omitempty,gt=0"`
	Deposito      *string          `json:"deposito,omitempty" validate:"omitempty,max=200"`
	Observaciones *string          `json:"observaciones,omitempty"`
	FechaSalida   *time.Time       `json:"fecha_salida,omitempty"`
	CostoServicio *decimal.Decimal `json:"costo_servicio_total,omitempty"`
}

// ListFilter narrows listings.
type ListFilter struct {
	Estado     *EstadoSalida
	IDUnidad   *int64
	IDCliente  *int64
	FechaDesde *time.Time
	FechaHasta *time.Time
	Pagina     shared.Pagination
}

// EstadisticasFilter narrows the per-state aggregation.
type EstadisticasFilter struct {
	IDUnidad *int64
}
