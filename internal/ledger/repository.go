package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LoteSaldo is the live balance of one lot, used for ledger cross-checks.
type LoteSaldo struct {
	ID               int64
	NroLote          string
	IDUnidad         int64
	CantidadUnidades int64
	TotalKg          decimal.Decimal
}

// Repository abstracts persistence for the service.
type Repository interface {
	HistorialByLote(ctx context.Context, loteID int64) ([]MovimientoLote, error)
	ByOrdenSalida(ctx context.Context, ordenID int64) ([]MovimientoLote, error)
	LoteSaldo(ctx context.Context, loteID int64) (*LoteSaldo, error)
	UltimosSaldos(ctx context.Context) ([]Inconsistencia, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository reads the ledger from PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const movColumns = `id_movimiento, id_lote_produccion, tipo_movimiento, cantidad_unidades,
	kg_movidos, saldo_unidades, saldo_kg, id_orden_salida, observaciones, id_usuario, fecha_movimiento`

func scanMovimientos(rows pgx.Rows) ([]MovimientoLote, error) {
	defer rows.Close()
	var movs []MovimientoLote
	for rows.Next() {
		var m MovimientoLote
		if err := rows.Scan(
			&m.ID, &m.IDLoteProduccion, &m.TipoMovimiento, &m.CantidadUnidades,
			&m.KgMovidos, &m.SaldoUnidades, &m.SaldoKg, &m.IDOrdenSalida,
			&m.Observaciones, &m.IDUsuario, &m.FechaMovimiento,
		); err != nil {
			return nil, err
		}
		movs = append(movs, m)
	}
	return movs, rows.Err()
}

func (r *repository) HistorialByLote(ctx context.Context, loteID int64) ([]MovimientoLote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+movColumns+` FROM movimientos_lote
		WHERE id_lote_produccion = $1
		ORDER BY fecha_movimiento DESC, id_movimiento DESC`, loteID)
	if err != nil {
		return nil, err
	}
	return scanMovimientos(rows)
}

func (r *repository) ByOrdenSalida(ctx context.Context, ordenID int64) ([]MovimientoLote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+movColumns+` FROM movimientos_lote
		WHERE id_orden_salida = $1
		ORDER BY fecha_movimiento DESC, id_movimiento DESC`, ordenID)
	if err != nil {
		return nil, err
	}
	return scanMovimientos(rows)
}

func (r *repository) LoteSaldo(ctx context.Context, loteID int64) (*LoteSaldo, error) {
	var s LoteSaldo
	err := r.pool.QueryRow(ctx,
		`SELECT id_lote_produccion, nro_lote, id_unidad, cantidad_unidades, total_kg
		FROM lotes_produccion WHERE id_lote_produccion = $1`, loteID).
		Scan(&s.ID, &s.NroLote, &s.IDUnidad, &s.CantidadUnidades, &s.TotalKg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UltimosSaldos pairs every lot's stored balance with its newest ledger
// snapshot and returns the rows that disagree.
func (r *repository) UltimosSaldos(ctx context.Context) ([]Inconsistencia, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id_lote_produccion, l.nro_lote, l.total_kg, m.saldo_kg,
			l.cantidad_unidades, m.saldo_unidades
		FROM lotes_produccion l
		JOIN LATERAL (
			SELECT saldo_unidades, saldo_kg
			FROM movimientos_lote
			WHERE id_lote_produccion = l.id_lote_produccion
			ORDER BY fecha_movimiento DESC, id_movimiento DESC
			LIMIT 1
		) m ON TRUE
		WHERE l.total_kg <> m.saldo_kg OR l.cantidad_unidades <> m.saldo_unidades`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Inconsistencia
	for rows.Next() {
		var inc Inconsistencia
		if err := rows.Scan(&inc.IDLoteProduccion, &inc.NroLote, &inc.SaldoLoteKg, &inc.SaldoLedgerKg,
			&inc.SaldoLoteUnidades, &inc.SaldoLedgerUnidades); err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
