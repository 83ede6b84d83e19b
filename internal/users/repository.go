package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUsernameTomado reports a username collision.
var ErrUsernameTomado = errors.New("username ya registrado")

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, u *Usuario) error
	Get(ctx context.Context, id int64) (*Usuario, error)
	GetByUsername(ctx context.Context, username string) (*Usuario, error)
	List(ctx context.Context, incluirInactivos bool) ([]Usuario, error)
	Update(ctx context.Context, u *Usuario) error
	SetActivo(ctx context.Context, id int64, activo bool) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const userColumns = `id_usuario, username, nombre, email, password_hash, rol, id_unidad, activo, fecha_creacion, fecha_actualizacion`

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Username, &u.Nombre, &u.Email, &u.PasswordHash,
		&u.Rol, &u.IDUnidad, &u.Activo, &u.FechaCreacion, &u.FechaActualizacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan usuario: %w", err)
	}
	return &u, nil
}

func (r *pgRepository) Create(ctx context.Context, u *Usuario) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO usuarios (username, nombre, email, password_hash, rol, id_unidad, activo, fecha_creacion, fecha_actualizacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id_usuario, fecha_creacion, fecha_actualizacion`,
		u.Username, u.Nombre, u.Email, u.PasswordHash, u.Rol, u.IDUnidad, u.Activo, time.Now(),
	).Scan(&u.ID, &u.FechaCreacion, &u.FechaActualizacion)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTomado
	}
	if err != nil {
		return fmt.Errorf("insert usuario: %w", err)
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Usuario, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id_usuario = $1`, id)
	return scanUsuario(row)
}

func (r *pgRepository) GetByUsername(ctx context.Context, username string) (*Usuario, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE username = $1`, username)
	return scanUsuario(row)
}

func (r *pgRepository) List(ctx context.Context, incluirInactivos bool) ([]Usuario, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios`
	if !incluirInactivos {
		query += ` WHERE activo = TRUE`
	}
	query += ` ORDER BY username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list usuarios: %w", err)
	}
	defer rows.Close()

	var out []Usuario
	for rows.Next() {
		var u Usuario
		if err := rows.Scan(&u.ID, &u.Username, &u.Nombre, &u.Email, &u.PasswordHash,
			&u.Rol, &u.IDUnidad, &u.Activo, &u.FechaCreacion, &u.FechaActualizacion); err != nil {
			return nil, fmt.Errorf("scan usuario: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, u *Usuario) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE usuarios
		SET nombre = $1, email = $2, password_hash = $3, rol = $4, id_unidad = $5, fecha_actualizacion = $6
		WHERE id_usuario = $7`,
		u.Nombre, u.Email, u.PasswordHash, u.Rol, u.IDUnidad, time.Now(), u.ID)
	if err != nil {
		return fmt.Errorf("update usuario %d: %w", u.ID, err)
	}
	return nil
}

func (r *pgRepository) SetActivo(ctx context.Context, id int64, activo bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE usuarios SET activo = $1, fecha_actualizacion = $2 WHERE id_usuario = $3`,
		activo, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set activo usuario %d: %w", id, err)
	}
	return nil
}
