package intake

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// CreateOrdenIngresoRequest carries the payload for a new intake order.
// Weighing and lab figures are range-checked by the service, not by tags,
// because they are decimals.
type CreateOrdenIngresoRequest struct {
	IDSemillera        int64      `json:"id_semillera" validate:"required,gt=0"`
	IDCooperador       int64      `json:"id_cooperador" validate:"required,gt=0"`
	IDConductor        int64      `json:"id_conductor" validate:"required,gt=0"`
	IDVehiculo         int64      `json:"id_vehiculo" validate:"required,gt=0"`
	IDSemilla          int64      `json:"id_semilla" validate:"required,gt=0"`
	IDVariedad         int64      `json:"id_variedad" validate:"required,gt=0"`
	IDCategoriaIngreso int64      `json:"id_categoria_ingreso" validate:"required,gt=0"`
	IDUnidad           int64      `json:"id_unidad" validate:"gte=0"`
	NroLoteCampo       string     `json:"nro_lote_campo" validate:"required,max=100"`
	NroCupon           string     `json:"nro_cupon" validate:"required,max=100"`
	LugarIngreso       *string    `json:"lugar_ingreso,omitempty" validate:"omitempty,max=200"`
	HoraIngreso        *time.Time `json:"hora_ingreso,omitempty"`
	LugarSalida        *string    `json:"lugar_salida,omitempty" validate:"omitempty,max=200"`
	HoraSalida         *time.Time `json:"hora_salida,omitempty"`

	PesoBruto   decimal.Decimal `json:"peso_bruto"`
	PesoTara    decimal.Decimal `json:"peso_tara"`
	PesoNeto    decimal.Decimal `json:"peso_neto"`
	PesoLiquido decimal.Decimal `json:"peso_liquido"`

	PorcentajeHumedad     decimal.Decimal `json:"porcentaje_humedad"`
	PorcentajeImpureza    decimal.Decimal `json:"porcentaje_impureza"`
	PesoHectolitrico      decimal.Decimal `json:"peso_hectolitrico"`
	PorcentajeGranoDanado decimal.Decimal `json:"porcentaje_grano_danado"`
	PorcentajeGranoVerde  decimal.Decimal `json:"porcentaje_grano_verde"`

	Observaciones *string `json:"observaciones,omitempty"`
	Estado        string  `json:"estado,omitempty"`
}

// UpdateOrdenIngresoRequest is a whitelist patch: only non-nil fields are
// applied to the order.
type UpdateOrdenIngresoRequest struct {
	IDSemillera        *int64     `json:"id_semillera,omitempty" validate:"omitempty,gt=0"`
	IDCooperador       *int64     `json:"id_cooperador,omitempty" validate:"omitempty,gt=0"`
	IDConductor        *int64     `json:"id_conductor,omitempty" validate:"omitempty,gt=0"`
	IDVehiculo         *int64     `json:"id_vehiculo,omitempty" validate:"omitempty,gt=0"`
	IDSemilla          *int64     `json:"id_semilla,omitempty" validate:"omitempty,gt=0"`
	IDVariedad         *int64     `json:"id_variedad,omitempty" validate:"omitempty,gt=0"`
	IDCategoriaIngreso *int64     `json:"id_categoria_ingreso,omitempty" validate:"omitempty,gt=0"`
	NroLoteCampo       *string    `json:"nro_lote_campo,omitempty" validate:"omitempty,max=100"`
	NroCupon           *string    `json:"nro_cupon,omitempty" validate:"omitempty,max=100"`
	LugarIngreso       *string    `json:"lugar_ingreso,omitempty" validate:"omitempty,max=200"`
	HoraIngreso        *time.Time `json:"hora_ingreso,omitempty"`
	LugarSalida        *string    `json:"lugar_salida,omitempty" validate:"omitempty,max=200"`
	HoraSalida         *time.Time `json:"hora_salida,omitempty"`

	PesoBruto   *decimal.Decimal `json:"peso_bruto,omitempty"`
	PesoTara    *decimal.Decimal `json:"peso_tara,omitempty"`
	PesoNeto    *decimal.Decimal `json:"peso_neto,omitempty"`
	PesoLiquido *decimal.Decimal `json:"peso_liquido,omitempty"`

	PorcentajeHumedad     *decimal.Decimal `json:"porcentaje_humedad,omitempty"`
	PorcentajeImpureza    *decimal.Decimal `json:"porcentaje_impureza,omitempty"`
	PesoHectolitrico      *decimal.Decimal `json:"peso_hectolitrico,omitempty"`
	PorcentajeGranoDanado *decimal.Decimal `json:"porcentaje_grano_danado,omitempty"`
	PorcentajeGranoVerde  *decimal.Decimal `json:"porcentaje_grano_verde,omitempty"`

	Observaciones *string `json:"observaciones,omitempty"`
}

// ListFilter narrows listings. IDUnidad is forced by the service for
// non-elevated callers.
type ListFilter struct {
	Estado     *Estado
	IDUnidad   *int64
	FechaDesde *time.Time
	FechaHasta *time.Time
	Pagina     shared.Pagination
}

// EstadisticasFilter narrows the per-state aggregation.
type EstadisticasFilter struct {
	IDUnidad *int64
}
