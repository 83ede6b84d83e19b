// Package outbound manages outbound orders (órdenes de salida): shipments
// that draw stock down from production lots. Creation is one atomic unit of
// provenance checks, header and line inserts, lot decrements and ledger rows.
package outbound

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// EstadoSalida enumerates outbound order states.
type EstadoSalida string

const (
	SalidaPendiente  EstadoSalida = "pendiente"
	SalidaEnTransito EstadoSalida = "en_transito"
	SalidaCompletado EstadoSalida = "completado"
	SalidaCancelado  EstadoSalida = "cancelado"
)

// ValidEstadoSalida reports whether s names a known state.
func ValidEstadoSalida(s string) bool {
	switch EstadoSalida(s) {
	case SalidaPendiente, SalidaEnTransito, SalidaCompletado, SalidaCancelado:
		return true
	}
	return false
}

// OrdenSalida models one shipment.
type OrdenSalida struct {
	ID                 int64            `json:"id_orden_salida"`
	NumeroOrden        string           `json:"numero_orden"`
	IDSemillera        int64            `json:"id_semillera"`
	IDSemilla          int64            `json:"id_semilla"`
	IDCliente          int64            `json:"id_cliente"`
	IDConductor        int64            `json:"id_conductor"`
	IDVehiculo         int64            `json:"id_vehiculo"`
	Deposito           *string          `json:"deposito,omitempty"`
	Observaciones      *string          `json:"observaciones,omitempty"`
	Estado             EstadoSalida     `json:"estado"`
	FechaSalida        time.Time        `json:"fecha_salida"`
	CostoServicio      *decimal.Decimal `json:"costo_servicio_total,omitempty"`
	IDUnidad           int64            `json:"id_unidad"`
	IDUsuarioCreador   int64            `json:"id_usuario_creador"`
	FechaCreacion      time.Time        `json:"fecha_creacion"`
	FechaActualizacion time.Time        `json:"fecha_actualizacion"`

	Detalles []DetalleOrdenSalida `json:"detalles,omitempty"`
}

// DetalleOrdenSalida is one lot draw-down. Variety, category and lot code are
// denormalized on purpose: they are historical snapshots of the lot at sale
// time, not joins to be refreshed.
type DetalleOrdenSalida struct {
	ID               int64           `json:"id_detalle_salida"`
	IDOrdenSalida    int64           `json:"id_orden_salida"`
	IDLoteProduccion int64           `json:"id_lote_produccion"`
	IDVariedad       int64           `json:"id_variedad"`
	IDCategoria      int64           `json:"id_categoria"`
	NroLote          string          `json:"nro_lote"`
	Tamano           *string         `json:"tamano,omitempty"`
	CantidadUnidades int64           `json:"cantidad_unidades"`
	KgPorUnidad      decimal.Decimal `json:"kg_por_unidad"`
	TotalKg          decimal.Decimal `json:"total_kg"`
	FechaCreacion    time.Time       `json:"fecha_creacion"`
}

// LoteVenta is the slice of a production lot the sale validation needs, read
// under a row lock inside the creation transaction.
type LoteVenta struct {
	ID                int64
	NroLote           string
	CantidadUnidades  int64
	KgPorUnidad       decimal.Decimal
	TotalKg           decimal.Decimal
	Estado            string
	IDVariedad        int64
	IDCategoriaSalida int64
	IDSemilla         int64
	IDSemillera       int64
	IDUnidad          int64
}

// ValidarProcedencia checks that the lot really descends from the seller and
// seed the order header declares.
func ValidarProcedencia(lote LoteVenta, idSemillera, idSemilla int64) error {
	if lote.IDSemillera != idSemillera {
		return shared.NewBusinessRule(
			"el lote %s proviene de la semillera %d y la orden declara la semillera %d",
			lote.NroLote, lote.IDSemillera, idSemillera)
	}
	if lote.IDSemilla != idSemilla {
		return shared.NewBusinessRule(
			"el lote %s corresponde a la semilla %d y la orden declara la semilla %d",
			lote.NroLote, lote.IDSemilla, idSemilla)
	}
	return nil
}

// ValidarDisponibilidad checks the requested units against the lot's current
// count, naming every figure involved.
func ValidarDisponibilidad(lote LoteVenta, solicitado int64) error {
	if solicitado > lote.CantidadUnidades {
		return shared.NewBusinessRule(
			"el lote %s no tiene suficientes unidades. Disponible: %d, Solicitado: %d",
			lote.NroLote, lote.CantidadUnidades, solicitado)
	}
	return nil
}

// EstadoTrasVenta derives the lot state after a decrement.
func EstadoTrasVenta(restante int64) string {
	if restante == 0 {
		return "vendido"
	}
	return "parcialmente_vendido"
}

// LoteDisponible is a lot still open for sale, as listed to order builders.
type LoteDisponible struct {
	ID                int64           `json:"id_lote_produccion"`
	NroLote           string          `json:"nro_lote"`
	IDVariedad        int64           `json:"id_variedad"`
	IDCategoriaSalida int64           `json:"id_categoria_salida"`
	CantidadUnidades  int64           `json:"cantidad_unidades"`
	KgPorUnidad       decimal.Decimal `json:"kg_por_unidad"`
	TotalKg           decimal.Decimal `json:"total_kg"`
	Estado            string          `json:"estado"`
	IDUnidad          int64           `json:"id_unidad"`
}

// SalidaStat aggregates orders per state.
type SalidaStat struct {
	Estado    EstadoSalida    `json:"estado"`
	Cantidad  int64           `json:"cantidad"`
	PesoTotal decimal.Decimal `json:"peso_total"`
}
