package production

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/platform/db"
	"github.com/semillero-erp/semillero-erp/internal/sequence"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Repository abstracts persistence for the service.
type Repository interface {
	Create(ctx context.Context, lote *LoteProduccion) error
	Get(ctx context.Context, id int64) (*LoteProduccion, error)
	GetByNroLote(ctx context.Context, nro string) (*LoteProduccion, error)
	List(ctx context.Context, filter ListFilter) ([]LoteProduccion, int, error)
	Update(ctx context.Context, lote *LoteProduccion, prevCantidad int64, prevTotalKg decimal.Decimal) error
	UpdateEstado(ctx context.Context, id int64, estado EstadoLote) error
	Delete(ctx context.Context, id int64) error
	InventarioPorVariedad(ctx context.Context) ([]InventarioVariedad, error)
	Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]LoteStat, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository persists production lots in PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const loteColumns = `id_lote_produccion, id_orden_ingreso, id_variedad, id_categoria_salida,
	nro_lote, cantidad_unidades, kg_por_unidad, total_kg, cantidad_original, total_kg_original,
	presentacion, tipo_servicio, estado, fecha_produccion,
	id_unidad, id_usuario_creador, fecha_creacion, fecha_actualizacion`

func scanLote(row pgx.Row) (*LoteProduccion, error) {
	var l LoteProduccion
	err := row.Scan(
		&l.ID, &l.IDOrdenIngreso, &l.IDVariedad, &l.IDCategoriaSalida,
		&l.NroLote, &l.CantidadUnidades, &l.KgPorUnidad, &l.TotalKg, &l.CantidadOriginal, &l.TotalKgOriginal,
		&l.Presentacion, &l.TipoServicio, &l.Estado, &l.FechaProduccion,
		&l.IDUnidad, &l.IDUsuarioCreador, &l.FechaCreacion, &l.FechaActualizacion,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create runs the whole lot admission in one transaction: the parent order row
// is locked so concurrent creations cannot jointly overdraw the budget, the
// lot code is drawn, and the opening "entrada" ledger row is written with the
// same balance the lot starts with.
func (r *repository) Create(ctx context.Context, lote *LoteProduccion) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var parent ParentOrden
		err := tx.QueryRow(ctx, `
			SELECT id_orden_ingreso, numero_orden, estado, peso_neto, id_semillera, id_unidad
			FROM ordenes_ingreso
			WHERE id_orden_ingreso = $1
			FOR UPDATE`, lote.IDOrdenIngreso).
			Scan(&parent.ID, &parent.NumeroOrden, &parent.Estado, &parent.PesoNeto, &parent.IDSemillera, &parent.IDUnidad)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NewNotFound("orden de ingreso con ID %d no encontrada", lote.IDOrdenIngreso)
		}
		if err != nil {
			return err
		}
		if parent.Estado == "cancelado" {
			return shared.NewBusinessRule("no se pueden crear lotes sobre la orden cancelada %s", parent.NumeroOrden)
		}

		var usado decimal.Decimal
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(total_kg_original), 0) FROM lotes_produccion WHERE id_orden_ingreso = $1`,
			lote.IDOrdenIngreso).Scan(&usado); err != nil {
			return err
		}
		if err := CheckBudget(parent, usado, lote.TotalKgOriginal); err != nil {
			return err
		}

		nro, err := sequence.Next(ctx, tx, sequence.DocLoteProduccion, lote.FechaCreacion)
		if err != nil {
			return err
		}
		lote.NroLote = nro

		if err := tx.QueryRow(ctx, `
			INSERT INTO lotes_produccion (
				id_orden_ingreso, id_variedad, id_categoria_salida, nro_lote,
				cantidad_unidades, kg_por_unidad, total_kg, cantidad_original, total_kg_original,
				presentacion, tipo_servicio, estado, fecha_produccion, id_unidad, id_usuario_creador
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING id_lote_produccion, fecha_creacion, fecha_actualizacion`,
			lote.IDOrdenIngreso, lote.IDVariedad, lote.IDCategoriaSalida, lote.NroLote,
			lote.CantidadUnidades, lote.KgPorUnidad, lote.TotalKg, lote.CantidadOriginal, lote.TotalKgOriginal,
			lote.Presentacion, lote.TipoServicio, lote.Estado, lote.FechaProduccion, lote.IDUnidad, lote.IDUsuarioCreador,
		).Scan(&lote.ID, &lote.FechaCreacion, &lote.FechaActualizacion); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO movimientos_lote (
				id_lote_produccion, tipo_movimiento, cantidad_unidades, kg_movidos,
				saldo_unidades, saldo_kg, observaciones, id_usuario
			) VALUES ($1, 'entrada', $2, $3, $4, $5, $6, $7)`,
			lote.ID, lote.CantidadUnidades, lote.TotalKg,
			lote.CantidadUnidades, lote.TotalKg, nil, lote.IDUsuarioCreador)
		return err
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*LoteProduccion, error) {
	lote, err := scanLote(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM lotes_produccion WHERE id_lote_produccion = $1`, loteColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return lote, err
}

func (r *repository) GetByNroLote(ctx context.Context, nro string) (*LoteProduccion, error) {
	lote, err := scanLote(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM lotes_produccion WHERE nro_lote = $1`, loteColumns), nro))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return lote, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]LoteProduccion, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argPos := 1

	if filter.Estado != nil {
		conditions = append(conditions, fmt.Sprintf("estado = $%d", argPos))
		args = append(args, *filter.Estado)
		argPos++
	}
	if filter.IDUnidad != nil {
		conditions = append(conditions, fmt.Sprintf("id_unidad = $%d", argPos))
		args = append(args, *filter.IDUnidad)
		argPos++
	}
	if filter.IDVariedad != nil {
		conditions = append(conditions, fmt.Sprintf("id_variedad = $%d", argPos))
		args = append(args, *filter.IDVariedad)
		argPos++
	}
	if filter.IDOrdenIngreso != nil {
		conditions = append(conditions, fmt.Sprintf("id_orden_ingreso = $%d", argPos))
		args = append(args, *filter.IDOrdenIngreso)
		argPos++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM lotes_produccion WHERE %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM lotes_produccion WHERE %s
		ORDER BY fecha_creacion DESC, id_lote_produccion DESC
		LIMIT $%d OFFSET $%d`, loteColumns, where, argPos, argPos+1)
	args = append(args, filter.Pagina.Limit, filter.Pagina.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var lotes []LoteProduccion
	for rows.Next() {
		lote, err := scanLote(rows)
		if err != nil {
			return nil, 0, err
		}
		lotes = append(lotes, *lote)
	}
	return lotes, total, rows.Err()
}

// Update saves the patched lot and, when the stock figures moved, records an
// "ajuste" ledger row carrying the post-adjustment balance.
func (r *repository) Update(ctx context.Context, lote *LoteProduccion, prevCantidad int64, prevTotalKg decimal.Decimal) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE lotes_produccion SET
				id_variedad = $2, id_categoria_salida = $3,
				cantidad_unidades = $4, kg_por_unidad = $5, total_kg = $6,
				presentacion = $7, tipo_servicio = $8, fecha_produccion = $9,
				fecha_actualizacion = NOW()
			WHERE id_lote_produccion = $1`,
			lote.ID,
			lote.IDVariedad, lote.IDCategoriaSalida,
			lote.CantidadUnidades, lote.KgPorUnidad, lote.TotalKg,
			lote.Presentacion, lote.TipoServicio, lote.FechaProduccion,
		); err != nil {
			return err
		}

		if lote.CantidadUnidades == prevCantidad && lote.TotalKg.Equal(prevTotalKg) {
			return nil
		}
		deltaUnidades := lote.CantidadUnidades - prevCantidad
		if deltaUnidades < 0 {
			deltaUnidades = -deltaUnidades
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO movimientos_lote (
				id_lote_produccion, tipo_movimiento, cantidad_unidades, kg_movidos,
				saldo_unidades, saldo_kg, observaciones, id_usuario
			) VALUES ($1, 'ajuste', $2, $3, $4, $5, $6, $7)`,
			lote.ID, deltaUnidades, lote.TotalKg.Sub(prevTotalKg).Abs(),
			lote.CantidadUnidades, lote.TotalKg, nil, lote.IDUsuarioCreador)
		return err
	})
}

func (r *repository) UpdateEstado(ctx context.Context, id int64, estado EstadoLote) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE lotes_produccion SET estado = $2, fecha_actualizacion = NOW() WHERE id_lote_produccion = $1`,
		id, estado)
	return err
}

// Delete removes the lot; its ledger rows go with it via the FK cascade.
func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lotes_produccion WHERE id_lote_produccion = $1`, id)
	return err
}

func (r *repository) InventarioPorVariedad(ctx context.Context) ([]InventarioVariedad, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id_variedad, v.nombre, s.nombre, c.id_categoria, c.nombre,
			COALESCE(SUM(l.cantidad_unidades), 0),
			COALESCE(SUM(l.total_kg), 0),
			COUNT(l.id_lote_produccion)
		FROM lotes_produccion l
		JOIN variedades v ON v.id_variedad = l.id_variedad
		JOIN semillas s ON s.id_semilla = v.id_semilla
		JOIN categorias c ON c.id_categoria = l.id_categoria_salida
		WHERE l.estado IN ('disponible', 'parcialmente_vendido')
		GROUP BY v.id_variedad, v.nombre, s.nombre, c.id_categoria, c.nombre
		ORDER BY v.nombre, c.nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventarioVariedad
	for rows.Next() {
		var inv InventarioVariedad
		if err := rows.Scan(&inv.IDVariedad, &inv.Variedad, &inv.Semilla, &inv.IDCategoria, &inv.Categoria,
			&inv.TotalUnidades, &inv.TotalKg, &inv.CantidadLotes); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]LoteStat, error) {
	query := `SELECT estado, COUNT(id_lote_produccion), COALESCE(SUM(total_kg), 0), COALESCE(SUM(cantidad_unidades), 0)
		FROM lotes_produccion`
	args := []any{}
	if filter.IDUnidad != nil {
		query += ` WHERE id_unidad = $1`
		args = append(args, *filter.IDUnidad)
	}
	query += ` GROUP BY estado`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []LoteStat
	for rows.Next() {
		var s LoteStat
		if err := rows.Scan(&s.Estado, &s.Cantidad, &s.PesoTotal, &s.TotalUnidades); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
