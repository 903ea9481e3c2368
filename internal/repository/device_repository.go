package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// DeviceRepository persists devices and their end-user assignments.
type DeviceRepository interface {
	CreateEquipo(ctx context.Context, e *domain.Equipo) error
	GetEquipo(ctx context.Context, id string) (*domain.Equipo, error)
	ListEquipos(ctx context.Context) ([]domain.Equipo, error)
	GetAsignacion(ctx context.Context, id string) (*domain.Asignacion, error)
	ListAsignaciones(ctx context.Context) ([]domain.Asignacion, error)
	// UpdateAsignacionUsuario rewrites the final end-user snapshot of a
	// delivered assignment; no workflow gating applies.
	UpdateAsignacionUsuario(ctx context.Context, id, dni, nombre, area string) (*domain.Asignacion, error)
}

type deviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository instantiates repository.
func NewDeviceRepository(pool *pgxpool.Pool) DeviceRepository {
	return &deviceRepository{pool: pool}
}

func (r *deviceRepository) CreateEquipo(ctx context.Context, e *domain.Equipo) error {
	const query = `
        INSERT INTO equipos (id, descripcion, serie, estado)
        VALUES ($1,$2,$3,$4)
        RETURNING creado`
	return r.pool.QueryRow(ctx, query, e.ID, e.Descripcion, e.Serie, e.Estado).Scan(&e.Creado)
}

func (r *deviceRepository) GetEquipo(ctx context.Context, id string) (*domain.Equipo, error) {
	const query = `SELECT id, descripcion, serie, estado, creado FROM equipos WHERE id=$1`
	var e domain.Equipo
	if err := r.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.Descripcion, &e.Serie, &e.Estado, &e.Creado); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *deviceRepository) ListEquipos(ctx context.Context) ([]domain.Equipo, error) {
	const query = `SELECT id, descripcion, serie, estado, creado FROM equipos ORDER BY creado ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Equipo
	for rows.Next() {
		var e domain.Equipo
		if err := rows.Scan(&e.ID, &e.Descripcion, &e.Serie, &e.Estado, &e.Creado); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

const asignacionColumns = `id, solicitud_id, equipo_id, dni, nombre, area, entregado, actualizado`

func (r *deviceRepository) GetAsignacion(ctx context.Context, id string) (*domain.Asignacion, error) {
	query := `SELECT ` + asignacionColumns + ` FROM asignaciones WHERE id=$1`
	return scanAsignacion(r.pool.QueryRow(ctx, query, id))
}

func (r *deviceRepository) ListAsignaciones(ctx context.Context) ([]domain.Asignacion, error) {
	query := `SELECT ` + asignacionColumns + ` FROM asignaciones ORDER BY entregado ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Asignacion
	for rows.Next() {
		a, err := scanAsignacion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *deviceRepository) UpdateAsignacionUsuario(ctx context.Context, id, dni, nombre, area string) (*domain.Asignacion, error) {
	query := `
        UPDATE asignaciones SET dni=$1, nombre=$2, area=$3, actualizado=NOW()
        WHERE id=$4
        RETURNING ` + asignacionColumns
	return scanAsignacion(r.pool.QueryRow(ctx, query, dni, nombre, area, id))
}

func scanAsignacion(row pgx.Row) (*domain.Asignacion, error) {
	var a domain.Asignacion
	if err := row.Scan(&a.ID, &a.SolicitudID, &a.EquipoID, &a.DNI, &a.Nombre, &a.Area, &a.Entregado, &a.Actualizado); err != nil {
		return nil, err
	}
	return &a, nil
}
