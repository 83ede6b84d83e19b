// Package ledger reads the movement ledger (movimientos de lote): the
// append-only trail every stock mutation leaves behind. Rows are written by
// the production and outbound transactions; nothing in this package, or
// anywhere else, ever updates or deletes one.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TipoMovimiento enumerates ledger row kinds.
type TipoMovimiento string

const (
	MovEntrada TipoMovimiento = "entrada"
	MovSalida  TipoMovimiento = "salida"
	MovAjuste  TipoMovimiento = "ajuste"
	MovMerma   TipoMovimiento = "merma"
)

// MovimientoLote is one append-only ledger row. The saldo fields are the
// post-movement balance snapshot, not a delta.
type MovimientoLote struct {
	ID               int64           `json:"id_movimiento"`
	IDLoteProduccion int64           `json:"id_lote_produccion"`
	TipoMovimiento   TipoMovimiento  `json:"tipo_movimiento"`
	CantidadUnidades int64           `json:"cantidad_unidades"`
	KgMovidos        decimal.Decimal `json:"kg_movidos"`
	SaldoUnidades    int64           `json:"saldo_unidades"`
	SaldoKg          decimal.Decimal `json:"saldo_kg"`
	IDOrdenSalida    *int64          `json:"id_orden_salida,omitempty"`
	Observaciones    *string         `json:"observaciones,omitempty"`
	IDUsuario        int64           `json:"id_usuario"`
	FechaMovimiento  time.Time       `json:"fecha_movimiento"`
}

// Resumen summarises a lot's trail. SaldoActual comes from the newest row's
// balance snapshot, so adjustments are reflected even though only entrada and
// salida participate in the in/out totals.
type Resumen struct {
	NroLote             string          `json:"nro_lote"`
	TotalEntradas       decimal.Decimal `json:"total_entradas"`
	TotalSalidas        decimal.Decimal `json:"total_salidas"`
	SaldoActual         decimal.Decimal `json:"saldo_actual"`
	CantidadMovimientos int             `json:"cantidad_movimientos"`
}

// Inconsistencia reports one lot whose stored balance disagrees with its
// latest ledger snapshot.
type Inconsistencia struct {
	IDLoteProduccion    int64           `json:"id_lote_produccion"`
	NroLote             string          `json:"nro_lote"`
	SaldoLoteKg         decimal.Decimal `json:"saldo_lote_kg"`
	SaldoLedgerKg       decimal.Decimal `json:"saldo_ledger_kg"`
	SaldoLoteUnidades   int64           `json:"saldo_lote_unidades"`
	SaldoLedgerUnidades int64           `json:"saldo_ledger_unidades"`
}
