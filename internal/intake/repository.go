package intake

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
)

// Repository abstracts persistence for the service.
type Repository interface {
	Create(ctx context.Context, orden *OrdenIngreso) error
	Get(ctx context.Context, id int64) (*OrdenIngreso, error)
	GetByNumeroOrden(ctx context.Context, numero string) (*OrdenIngreso, error)
	List(ctx context.Context, filter ListFilter) ([]OrdenIngreso, int, error)
	Update(ctx context.Context, orden *OrdenIngreso) error
	UpdateEstado(ctx context.Context, id int64, estado Estado) error
	Delete(ctx context.Context, id int64) error
	CountLotes(ctx context.Context, ordenID int64) (int, error)
	SumLotesKgOriginal(ctx context.Context, ordenID int64) (decimal.Decimal, error)
	ResumenLotes(ctx context.Context, ordenID int64) ([]LoteResumen, error)
	Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]EstadoStat, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository persists intake orders in PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const ordenColumns = `id_orden_ingreso, numero_orden, id_semillera, id_cooperador, id_conductor,
	id_vehiculo, id_semilla, id_variedad, id_categoria_ingreso, nro_lote_campo, nro_cupon,
	lugar_ingreso, hora_ingreso, lugar_salida, hora_salida,
	peso_bruto, peso_tara, peso_neto, peso_liquido,
	porcentaje_humedad, porcentaje_impureza, peso_hectolitrico,
	porcentaje_grano_danado, porcentaje_grano_verde,
	observaciones, estado, id_unidad, id_usuario_creador, fecha_creacion, fecha_actualizacion`

func scanOrden(row pgx.Row) (*OrdenIngreso, error) {
	var o OrdenIngreso
	err := row.Scan(
		&o.ID, &o.NumeroOrden, &o.IDSemillera, &o.IDCooperador, &o.IDConductor,
		&o.IDVehiculo, &o.IDSemilla, &o.IDVariedad, &o.IDCategoriaIngreso, &o.NroLoteCampo, &o.NroCupon,
		&o.LugarIngreso, &o.HoraIngreso, &o.LugarSalida, &o.HoraSalida,
		&o.PesoBruto, &o.PesoTara, &o.PesoNeto, &o.PesoLiquido,
		&o.PorcentajeHumedad, &o.PorcentajeImpureza, &o.PesoHectolitrico,
		&o.PorcentajeGranoDanado, &o.PorcentajeGranoVerde,
		&o.Observaciones, &o.Estado, &o.IDUnidad, &o.IDUsuarioCreador, &o.FechaCreacion, &o.FechaActualizacion,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create draws the order code and inserts the row inside one transaction so
// the code cannot leak when the insert fails.
func (r *repository) Create(ctx context.Context, orden *OrdenIngreso) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		numero, err := sequence.Next(ctx, tx, sequence.DocOrdenIngreso, orden.FechaCreacion)
		if err != nil {
			return err
		}
		orden.NumeroOrden = numero
		return tx.QueryRow(ctx, `
			INSERT INTO ordenes_ingreso (
				numero_orden, id_semillera, id_cooperador, id_conductor, id_vehiculo,
				id_semilla, id_variedad, id_categoria_ingreso, nro_lote_campo, nro_cupon,
				lugar_ingreso, hora_ingreso, lugar_salida, hora_salida,
				peso_bruto, peso_tara, peso_neto, peso_liquido,
				porcentaje_humedad, porcentaje_impureza, peso_hectolitrico,
				porcentaje_grano_danado, porcentaje_grano_verde,
				observaciones, estado, id_unidad, id_usuario_creador
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
			RETURNING id_orden_ingreso, fecha_creacion, fecha_actualizacion`,
			orden.NumeroOrden, orden.IDSemillera, orden.IDCooperador, orden.IDConductor, orden.IDVehiculo,
			orden.IDSemilla, orden.IDVariedad, orden.IDCategoriaIngreso, orden.NroLoteCampo, orden.NroCupon,
			orden.LugarIngreso, orden.HoraIngreso, orden.LugarSalida, orden.HoraSalida,
			orden.PesoBruto, orden.PesoTara, orden.PesoNeto, orden.PesoLiquido,
			orden.PorcentajeHumedad, orden.PorcentajeImpureza, orden.PesoHectolitrico,
			orden.PorcentajeGranoDanado, orden.PorcentajeGranoVerde,
			orden.Observaciones, orden.Estado, orden.IDUnidad, orden.IDUsuarioCreador,
		).Scan(&orden.ID, &orden.FechaCreacion, &orden.FechaActualizacion)
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*OrdenIngreso, error) {
	orden, err := scanOrden(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM ordenes_ingreso WHERE id_orden_ingreso = $1`, ordenColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return orden, err
}

func (r *repository) GetByNumeroOrden(ctx context.Context, numero string) (*OrdenIngreso, error) {
	orden, err := scanOrden(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM ordenes_ingreso WHERE numero_orden = $1`, ordenColumns), numero))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return orden, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]OrdenIngreso, int, error) {
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
	if filter.FechaDesde != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_creacion >= $%d", argPos))
		args = append(args, *filter.FechaDesde)
		argPos++
	}
	if filter.FechaHasta != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_creacion <= $%d", argPos))
		args = append(args, *filter.FechaHasta)
		argPos++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM ordenes_ingreso WHERE %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM ordenes_ingreso WHERE %s
		ORDER BY fecha_creacion DESC, id_orden_ingreso DESC
		LIMIT $%d OFFSET $%d`, ordenColumns, where, argPos, argPos+1)
	args = append(args, filter.Pagina.Limit, filter.Pagina.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ordenes []OrdenIngreso
	for rows.Next() {
		orden, err := scanOrden(rows)
		if err != nil {
			return nil, 0, err
		}
		ordenes = append(ordenes, *orden)
	}
	return ordenes, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, orden *OrdenIngreso) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ordenes_ingreso SET
			id_semillera = $2, id_cooperador = $3, id_conductor = $4, id_vehiculo = $5,
			id_semilla = $6, id_variedad = $7, id_categoria_ingreso = $8,
			nro_lote_campo = $9, nro_cupon = $10,
			lugar_ingreso = $11, hora_ingreso = $12, lugar_salida = $13, hora_salida = $14,
			peso_bruto = $15, peso_tara = $16, peso_neto = $17, peso_liquido = $18,
			porcentaje_humedad = $19, porcentaje_impureza = $20, peso_hectolitrico = $21,
			porcentaje_grano_danado = $22, porcentaje_grano_verde = $23,
			observaciones = $24, fecha_actualizacion = NOW()
		WHERE id_orden_ingreso = $1`,
		orden.ID,
		orden.IDSemillera, orden.IDCooperador, orden.IDConductor, orden.IDVehiculo,
		orden.IDSemilla, orden.IDVariedad, orden.IDCategoriaIngreso,
		orden.NroLoteCampo, orden.NroCupon,
		orden.LugarIngreso, orden.HoraIngreso, orden.LugarSalida, orden.HoraSalida,
		orden.PesoBruto, orden.PesoTara, orden.PesoNeto, orden.PesoLiquido,
		orden.PorcentajeHumedad, orden.PorcentajeImpureza, orden.PesoHectolitrico,
		orden.PorcentajeGranoDanado, orden.PorcentajeGranoVerde,
		orden.Observaciones,
	)
	return err
}

func (r *repository) UpdateEstado(ctx context.Context, id int64, estado Estado) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ordenes_ingreso SET estado = $2, fecha_actualizacion = NOW() WHERE id_orden_ingreso = $1`,
		id, estado)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ordenes_ingreso WHERE id_orden_ingreso = $1`, id)
	return err
}

func (r *repository) CountLotes(ctx context.Context, ordenID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lotes_produccion WHERE id_orden_ingreso = $1`, ordenID).Scan(&n)
	return n, err
}

func (r *repository) SumLotesKgOriginal(ctx context.Context, ordenID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_kg_original), 0) FROM lotes_produccion WHERE id_orden_ingreso = $1`,
		ordenID).Scan(&sum)
	return sum, err
}

func (r *repository) ResumenLotes(ctx context.Context, ordenID int64) ([]LoteResumen, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT nro_lote, cantidad_unidades, kg_por_unidad, total_kg, total_kg_original, presentacion
		FROM lotes_produccion
		WHERE id_orden_ingreso = $1
		ORDER BY fecha_creacion DESC`, ordenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lotes []LoteResumen
	for rows.Next() {
		var l LoteResumen
		if err := rows.Scan(&l.NroLote, &l.CantidadUnidades, &l.KgPorUnidad, &l.TotalKg, &l.TotalKgOriginal, &l.Presentacion); err != nil {
			return nil, err
		}
		lotes = append(lotes, l)
	}
	return lotes, rows.Err()
}

func (r *repository) Estadisticas(ctx context.Context, filter EstadisticasFilter) ([]EstadoStat, error) {
	query := `SELECT estado, COUNT(id_orden_ingreso), COALESCE(SUM(peso_neto), 0)
		FROM ordenes_ingreso`
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

	var stats []EstadoStat
	for rows.Next() {
		var s EstadoStat
		if err := rows.Scan(&s.Estado, &s.Cantidad, &s.PesoTotal); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
