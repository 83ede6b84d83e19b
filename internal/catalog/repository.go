package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists one catalog's records. The table-driven layout keeps
// the ten catalogs behind a single implementation.
type Repository interface {
	List(ctx context.Context, tipo Tipo, soloActivos bool) ([]Entidad, error)
	Get(ctx context.Context, tipo Tipo, id int64) (*Entidad, error)
	Create(ctx context.Context, tipo Tipo, ent *Entidad) error
	Update(ctx context.Context, tipo Tipo, ent *Entidad) error
	SetActivo(ctx context.Context, tipo Tipo, id int64, activo bool) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// ErrNombreDuplicado reports a normalized-name collision inside one catalog.
var ErrNombreDuplicado = errors.New("nombre duplicado en el catálogo")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *pgRepository) columns(d descriptor) (padre, detalle string) {
	padre, detalle = "NULL", "NULL"
	if d.colPadre != "" {
		padre = d.colPadre
	}
	if d.colDetalle != "" {
		detalle = d.colDetalle
	}
	return padre, detalle
}

func (r *pgRepository) List(ctx context.Context, tipo Tipo, soloActivos bool) ([]Entidad, error) {
	d := descriptores[tipo]
	padre, detalle := r.columns(d)
	query := fmt.Sprintf(`
		SELECT %s, nombre, %s, %s, activo, fecha_creacion, fecha_actualizacion
		FROM %s`, d.colID, detalle, padre, d.tabla)
	if soloActivos {
		query += " WHERE activo = TRUE"
	}
	query += " ORDER BY nombre"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.tabla, err)
	}
	defer rows.Close()

	var out []Entidad
	for rows.Next() {
		var ent Entidad
		if err := rows.Scan(&ent.ID, &ent.Nombre, &ent.Detalle, &ent.Padre, &ent.Activo, &ent.FechaCreacion, &ent.FechaActualizacion); err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.tabla, err)
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, tipo Tipo, id int64) (*Entidad, error) {
	d := descriptores[tipo]
	padre, detalle := r.columns(d)
	query := fmt.Sprintf(`
		SELECT %s, nombre, %s, %s, activo, fecha_creacion, fecha_actualizacion
		FROM %s WHERE %s = $1`, d.colID, detalle, padre, d.tabla, d.colID)

	var ent Entidad
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&ent.ID, &ent.Nombre, &ent.Detalle, &ent.Padre, &ent.Activo, &ent.FechaCreacion, &ent.FechaActualizacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", d.tabla, id, err)
	}
	return &ent, nil
}

func (r *pgRepository) Create(ctx context.Context, tipo Tipo, ent *Entidad) error {
	d := descriptores[tipo]
	cols := "nombre, nombre_normalizado, activo, fecha_creacion, fecha_actualizacion"
	placeholders := "$1, $2, $3, $4, $4"
	args := []any{ent.Nombre, NormalizarNombre(ent.Nombre), ent.Activo, time.Now()}
	if d.colDetalle != "" {
		cols += ", " + d.colDetalle
		placeholders += fmt.Sprintf(", $%d", len(args)+1)
		args = append(args, ent.Detalle)
	}
	if d.colPadre != "" {
		cols += ", " + d.colPadre
		placeholders += fmt.Sprintf(", $%d", len(args)+1)
		args = append(args, ent.Padre)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s, fecha_creacion, fecha_actualizacion",
		d.tabla, cols, placeholders, d.colID)

	err := r.pool.QueryRow(ctx, query, args...).Scan(&ent.ID, &ent.FechaCreacion, &ent.FechaActualizacion)
	if isUniqueViolation(err) {
		return ErrNombreDuplicado
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", d.tabla, err)
	}
	return nil
}

func (r *pgRepository) Update(ctx context.Context, tipo Tipo, ent *Entidad) error {
	d := descriptores[tipo]
	sets := "nombre = $1, nombre_normalizado = $2, fecha_actualizacion = $3"
	args := []any{ent.Nombre, NormalizarNombre(ent.Nombre), time.Now()}
	if d.colDetalle != "" {
		sets += fmt.Sprintf(", %s = $%d", d.colDetalle, len(args)+1)
		args = append(args, ent.Detalle)
	}
	if d.colPadre != "" {
		sets += fmt.Sprintf(", %s = $%d", d.colPadre, len(args)+1)
		args = append(args, ent.Padre)
	}
	args = append(args, ent.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", d.tabla, sets, d.colID, len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrNombreDuplicado
	}
	if err != nil {
		return fmt.Errorf("update %s %d: %w", d.tabla, ent.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgRepository) SetActivo(ctx context.Context, tipo Tipo, id int64, activo bool) error {
	d := descriptores[tipo]
	query := fmt.Sprintf("UPDATE %s SET activo = $1, fecha_actualizacion = $2 WHERE %s = $3", d.tabla, d.colID)
	tag, err := r.pool.Exec(ctx, query, activo, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set activo %s %d: %w", d.tabla, id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
