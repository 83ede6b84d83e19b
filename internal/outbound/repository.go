package outbound

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
	Create(ctx context.Context, orden *OrdenSalida, detalles []DetalleRequest) error
	Get(ctx context.Context, id int64) (*OrdenSalida, error)
	GetByNumeroOrden(ctx context.Context, numero string) (*OrdenSalida, error)
	List(ctx context.Context, filter ListFilter) ([]OrdenSalida, int, error)
	Update(ctx context.Context, orden *OrdenSalida) error
	UpdateEstado(ctx context.Context, id int64, estado EstadoSalida) error
	Delete(ctx context.Context, id int64) error
	LotesDisponibles(ctx context.Context, idUnidad *int64) ([]LoteDisponible, error)
	Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]SalidaStat, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository persists outbound orders in PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const ordenColumns = `id_orden_salida, numero_orden, id_semillera, id_semilla, id_cliente,
	id_conductor, id_vehiculo, deposito, observaciones, estado, fecha_salida,
	costo_servicio_total, id_unidad, id_usuario_creador, fecha_creacion, fecha_actualizacion`

func scanOrden(row pgx.Row) (*OrdenSalida, error) {
	var o OrdenSalida
	err := row.Scan(
		&o.ID, &o.NumeroOrden, &o.IDSemillera, &o.IDSemilla, &o.IDCliente,
		&o.IDConductor, &o.IDVehiculo, &o.Deposito, &o.Observaciones, &o.Estado, &o.FechaSalida,
		&o.CostoServicio, &o.IDUnidad, &o.IDUsuarioCreador, &o.FechaCreacion, &o.FechaActualizacion,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// lockLote loads the lot with its provenance chain under a row lock, so
// concurrent sales against the same lot serialize instead of overdrawing it.
func lockLote(ctx context.Context, tx pgx.Tx, id int64) (*LoteVenta, error) {
	var l LoteVenta
	err := tx.QueryRow(ctx, `
		SELECT l.id_lote_produccion, l.nro_lote, l.cantidad_unidades, l.kg_por_unidad,
			l.total_kg, l.estado, l.id_variedad, l.id_categoria_salida,
			v.id_semilla, o.id_semillera, l.id_unidad
		FROM lotes_produccion l
		JOIN variedades v ON v.id_variedad = l.id_variedad
		JOIN ordenes_ingreso o ON o.id_orden_ingreso = l.id_orden_ingreso
		WHERE l.id_lote_produccion = $1
		FOR UPDATE OF l`, id).
		Scan(&l.ID, &l.NroLote, &l.CantidadUnidades, &l.KgPorUnidad,
			&l.TotalKg, &l.Estado, &l.IDVariedad, &l.IDCategoriaSalida,
			&l.IDSemilla, &l.IDSemillera, &l.IDUnidad)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NewNotFound("lote %d no encontrado", id)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create runs the whole shipment in one transaction: every referenced lot is
// locked and validated before any row is written, then the header, the lines,
// the "salida" ledger rows and the lot decrements land together or not at all.
func (r *repository) Create(ctx context.Context, orden *OrdenSalida, detalles []DetalleRequest) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lotes := make(map[int64]*LoteVenta)
		restante := make(map[int64]int64)
		for _, d := range detalles {
			lote, ok := lotes[d.IDLoteProduccion]
			if !ok {
				var err error
				lote, err = lockLote(ctx, tx, d.IDLoteProduccion)
				if err != nil {
					return err
				}
				lotes[d.IDLoteProduccion] = lote
				restante[d.IDLoteProduccion] = lote.CantidadUnidades
			}
			if err := ValidarProcedencia(*lote, orden.IDSemillera, orden.IDSemilla); err != nil {
				return err
			}
			queda := *lote
			queda.CantidadUnidades = restante[d.IDLoteProduccion]
			if err := ValidarDisponibilidad(queda, d.CantidadUnidades); err != nil {
				return err
			}
			restante[d.IDLoteProduccion] -= d.CantidadUnidades
		}

		numero, err := sequence.Next(ctx, tx, sequence.DocOrdenSalida, orden.FechaCreacion)
		if err != nil {
			return err
		}
		orden.NumeroOrden = numero

		if err := tx.QueryRow(ctx, `
			INSERT INTO ordenes_salida (
				numero_orden, id_semillera, id_semilla, id_cliente, id_conductor, id_vehiculo,
				deposito, observaciones, estado, fecha_salida, costo_servicio_total,
				id_unidad, id_usuario_creador
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id_orden_salida, fecha_creacion, fecha_actualizacion`,
			orden.NumeroOrden, orden.IDSemillera, orden.IDSemilla, orden.IDCliente, orden.IDConductor, orden.IDVehiculo,
			orden.Deposito, orden.Observaciones, orden.Estado, orden.FechaSalida, orden.CostoServicio,
			orden.IDUnidad, orden.IDUsuarioCreador,
		).Scan(&orden.ID, &orden.FechaCreacion, &orden.FechaActualizacion); err != nil {
			return err
		}

		orden.Detalles = orden.Detalles[:0]
		for _, d := range detalles {
			lote := lotes[d.IDLoteProduccion]

			kgVenta := d.KgPorUnidad
			if kgVenta.IsZero() {
				kgVenta = lote.KgPorUnidad
			}
			detalle := DetalleOrdenSalida{
				IDOrdenSalida:    orden.ID,
				IDLoteProduccion: lote.ID,
				IDVariedad:       lote.IDVariedad,
				IDCategoria:      lote.IDCategoriaSalida,
				NroLote:          lote.NroLote,
				Tamano:           d.Tamano,
				CantidadUnidades: d.CantidadUnidades,
				KgPorUnidad:      kgVenta,
				TotalKg:          kgVenta.Mul(decimal.NewFromInt(d.CantidadUnidades)),
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO detalle_ordenes_salida (
					id_orden_salida, id_lote_produccion, id_variedad, id_categoria,
					nro_lote, tamano, cantidad_unidades, kg_por_unidad, total_kg
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				RETURNING id_detalle_salida, fecha_creacion`,
				detalle.IDOrdenSalida, detalle.IDLoteProduccion, detalle.IDVariedad, detalle.IDCategoria,
				detalle.NroLote, detalle.Tamano, detalle.CantidadUnidades, detalle.KgPorUnidad, detalle.TotalKg,
			).Scan(&detalle.ID, &detalle.FechaCreacion); err != nil {
				return err
			}

			// The lot keeps its own kg basis, so the ledger stays reconcilable
			// even when the sale price weight differs.
			nuevoCantidad := lote.CantidadUnidades - d.CantidadUnidades
			nuevoTotal := lote.KgPorUnidad.Mul(decimal.NewFromInt(nuevoCantidad))
			kgMovidos := lote.TotalKg.Sub(nuevoTotal)
			estado := EstadoTrasVenta(nuevoCantidad)

			if _, err := tx.Exec(ctx, `
				INSERT INTO movimientos_lote (
					id_lote_produccion, tipo_movimiento, cantidad_unidades, kg_movidos,
					saldo_unidades, saldo_kg, id_orden_salida, id_usuario
				) VALUES ($1, 'salida', $2, $3, $4, $5, $6, $7)`,
				lote.ID, d.CantidadUnidades, kgMovidos,
				nuevoCantidad, nuevoTotal, orden.ID, orden.IDUsuarioCreador,
			); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE lotes_produccion
				SET cantidad_unidades = $2, total_kg = $3, estado = $4, fecha_actualizacion = NOW()
				WHERE id_lote_produccion = $1`,
				lote.ID, nuevoCantidad, nuevoTotal, estado,
			); err != nil {
				return err
			}
			lote.CantidadUnidades = nuevoCantidad
			lote.TotalKg = nuevoTotal
			lote.Estado = estado

			orden.Detalles = append(orden.Detalles, detalle)
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*OrdenSalida, error) {
	orden, err := scanOrden(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM ordenes_salida WHERE id_orden_salida = $1`, ordenColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDetalles(ctx, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

func (r *repository) GetByNumeroOrden(ctx context.Context, numero string) (*OrdenSalida, error) {
	orden, err := scanOrden(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM ordenes_salida WHERE numero_orden = $1`, ordenColumns), numero))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDetalles(ctx, orden); err != nil {
		return nil, err
	}
	return orden, nil
}

func (r *repository) loadDetalles(ctx context.Context, orden *OrdenSalida) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id_detalle_salida, id_orden_salida, id_lote_produccion, id_variedad, id_categoria,
			nro_lote, tamano, cantidad_unidades, kg_por_unidad, total_kg, fecha_creacion
		FROM detalle_ordenes_salida
		WHERE id_orden_salida = $1
		ORDER BY id_detalle_salida`, orden.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d DetalleOrdenSalida
		if err := rows.Scan(&d.ID, &d.IDOrdenSalida, &d.IDLoteProduccion, &d.IDVariedad, &d.IDCategoria,
			&d.NroLote, &d.Tamano, &d.CantidadUnidades, &d.KgPorUnidad, &d.TotalKg, &d.FechaCreacion); err != nil {
			return err
		}
		orden.Detalles = append(orden.Detalles, d)
	}
	return rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]OrdenSalida, int, error) {
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
	if filter.IDCliente != nil {
		conditions = append(conditions, fmt.Sprintf("id_cliente = $%d", argPos))
		args = append(args, *filter.IDCliente)
		argPos++
	}
	if filter.FechaDesde != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_salida >= $%d", argPos))
		args = append(args, *filter.FechaDesde)
		argPos++
	}
	if filter.FechaHasta != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_salida <= $%d", argPos))
		args = append(args, *filter.FechaHasta)
		argPos++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM ordenes_salida WHERE %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM ordenes_salida WHERE %s
		ORDER BY fecha_salida DESC, id_orden_salida DESC
		LIMIT $%d OFFSET $%d`, ordenColumns, where, argPos, argPos+1)
	args = append(args, filter.Pagina.Limit, filter.Pagina.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ordenes []OrdenSalida
	for rows.Next() {
		orden, err := scanOrden(rows)
		if err != nil {
			return nil, 0, err
		}
		ordenes = append(ordenes, *orden)
	}
	return ordenes, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, orden *OrdenSalida) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ordenes_salida SET
			id_cliente = $2, id_conductor = $3, id_vehiculo = $4,
			deposito = $5, observaciones = $6, fecha_salida = $7,
			costo_servicio_total = $8, fecha_actualizacion = NOW()
		WHERE id_orden_salida = $1`,
		orden.ID,
		orden.IDCliente, orden.IDConductor, orden.IDVehiculo,
		orden.Deposito, orden.Observaciones, orden.FechaSalida,
		orden.CostoServicio,
	)
	return err
}

func (r *repository) UpdateEstado(ctx context.Context, id int64, estado EstadoSalida) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ordenes_salida SET estado = $2, fecha_actualizacion = NOW() WHERE id_orden_salida = $1`,
		id, estado)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ordenes_salida WHERE id_orden_salida = $1`, id)
	return err
}

func (r *repository) LotesDisponibles(ctx context.Context, idUnidad *int64) ([]LoteDisponible, error) {
	query := `
		SELECT id_lote_produccion, nro_lote, id_variedad, id_categoria_salida,
			cantidad_unidades, kg_por_unidad, total_kg, estado, id_unidad
		FROM lotes_produccion
		WHERE estado IN ('disponible', 'parcialmente_vendido') AND cantidad_unidades > 0`
	args := []any{}
	if idUnidad != nil {
		query += ` AND id_unidad = $1`
		args = append(args, *idUnidad)
	}
	query += ` ORDER BY fecha_creacion DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lotes []LoteDisponible
	for rows.Next() {
		var l LoteDisponible
		if err := rows.Scan(&l.ID, &l.NroLote, &l.IDVariedad, &l.IDCategoriaSalida,
			&l.CantidadUnidades, &l.KgPorUnidad, &l.TotalKg, &l.Estado, &l.IDUnidad); err != nil {
			return nil, err
		}
		lotes = append(lotes, l)
	}
	return lotes, rows.Err()
}

func (r *repository) Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]SalidaStat, error) {
	query := `SELECT o.estado, COUNT(DISTINCT o.id_orden_salida), COALESCE(SUM(d.total_kg), 0)
		FROM ordenes_salida o
		LEFT JOIN detalle_ordenes_salida d ON d.id_orden_salida = o.id_orden_salida`
	args := []any{}
	if filter.IDUnidad != nil {
		query += ` WHERE o.id_unidad = $1`
		args = append(args, *filter.IDUnidad)
	}
	query += ` GROUP BY o.estado`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SalidaStat
	for rows.Next() {
		var s SalidaStat
		if err := rows.Scan(&s.Estado, &s.Cantidad, &s.PesoTotal); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
