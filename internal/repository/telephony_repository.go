package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// ErrVersionConflict signals a lost compare-and-swap: another writer updated
// the ticket between read and write.
var ErrVersionConflict = errors.New("version conflict")

// TelephonyRepository encapsulates telephony ticket persistence.
type TelephonyRepository interface {
	Create(ctx context.Context, s *domain.SolicitudTelefonia) error
	GetByID(ctx context.Context, id string) (*domain.SolicitudTelefonia, error)
	List(ctx context.Context) ([]domain.SolicitudTelefonia, error)
	Update(ctx context.Context, s *domain.SolicitudTelefonia) error
	// Deliver commits the ticket update, the device status change and the
	// assignment record in a single transaction.
	Deliver(ctx context.Context, s *domain.SolicitudTelefonia, asg *domain.Asignacion) error
}

type telephonyRepository struct {
	pool *pgxpool.Pool
}

// NewTelephonyRepository instantiates repository.
func NewTelephonyRepository(pool *pgxpool.Pool) TelephonyRepository {
	return &telephonyRepository{pool: pool}
}

const telephonyColumns = `
        id, dni, nombre, area, cargo, linea_referencia, tipo, servicio, plan,
        motivo_incidencia, asume_costo, cuotas, tiene_evidencia, numero_afectado, equipo_anterior,
        estado, aprobacion_gerencia, fecha_aprobacion_gerencia, aprobacion_gerencia_nombre,
        aprobacion_admin, fecha_aprobacion_admin, aprobacion_admin_nombre,
        fecha_entrega, recibido_por, equipo_asignado_id,
        created_by, created_by_email, created_by_name, creado, version`

func (r *telephonyRepository) Create(ctx context.Context, s *domain.SolicitudTelefonia) error {
	const query = `
        INSERT INTO solicitudes_telefonia (
            id, dni, nombre, area, cargo, linea_referencia, tipo, servicio, plan,
            motivo_incidencia, asume_costo, cuotas, tiene_evidencia, numero_afectado, equipo_anterior,
            estado, created_by, created_by_email, created_by_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING creado, version`

	var motivo, asume, numero, anterior *string
	var cuotas *int
	var evidencia *bool
	if rep := s.Reposicion; rep != nil {
		m, a := string(rep.Motivo), string(rep.AsumeCosto)
		motivo, asume = &m, &a
		cuotas = &rep.Cuotas
		evidencia = &rep.TieneEvidencia
		numero, anterior = &rep.NumeroAfectado, &rep.EquipoAnterior
	}

	return r.pool.QueryRow(ctx, query,
		s.ID, s.DNI, s.Nombre, s.Area, s.Cargo, s.LineaReferencia,
		s.Tipo, s.Servicio, s.Plan,
		motivo, asume, cuotas, evidencia, numero, anterior,
		s.Estado, s.CreatedBy, s.CreatedByEmail, s.CreatedByName,
	).Scan(&s.Creado, &s.Version)
}

func (r *telephonyRepository) GetByID(ctx context.Context, id string) (*domain.SolicitudTelefonia, error) {
	query := `SELECT ` + telephonyColumns + ` FROM solicitudes_telefonia WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTelephony(row)
}

func (r *telephonyRepository) List(ctx context.Context) ([]domain.SolicitudTelefonia, error) {
	query := `SELECT ` + telephonyColumns + ` FROM solicitudes_telefonia ORDER BY creado ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SolicitudTelefonia
	for rows.Next() {
		s, err := scanTelephony(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

const telephonyUpdate = `
        UPDATE solicitudes_telefonia SET
            estado=$1, aprobacion_gerencia=$2, fecha_aprobacion_gerencia=$3, aprobacion_gerencia_nombre=$4,
            aprobacion_admin=$5, fecha_aprobacion_admin=$6, aprobacion_admin_nombre=$7,
            fecha_entrega=$8, recibido_por=$9, equipo_asignado_id=$10, version=version+1
        WHERE id=$11 AND version=$12`

func (r *telephonyRepository) Update(ctx context.Context, s *domain.SolicitudTelefonia) error {
	cmd, err := r.pool.Exec(ctx, telephonyUpdate,
		s.Estado,
		s.AprobacionGerencia, s.FechaAprobacionGerencia, s.AprobacionGerenciaNombre,
		s.AprobacionAdmin, s.FechaAprobacionAdmin, s.AprobacionAdminNombre,
		s.FechaEntrega, s.RecibidoPor, s.EquipoAsignadoID,
		s.ID, s.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

func (r *telephonyRepository) Deliver(ctx context.Context, s *domain.SolicitudTelefonia, asg *domain.Asignacion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, telephonyUpdate,
		s.Estado,
		s.AprobacionGerencia, s.FechaAprobacionGerencia, s.AprobacionGerenciaNombre,
		s.AprobacionAdmin, s.FechaAprobacionAdmin, s.AprobacionAdminNombre,
		s.FechaEntrega, s.RecibidoPor, s.EquipoAsignadoID,
		s.ID, s.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	if _, err := tx.Exec(ctx,
		`UPDATE equipos SET estado=$1 WHERE id=$2`,
		domain.EquipoAsignado, asg.EquipoID,
	); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `
        INSERT INTO asignaciones (solicitud_id, equipo_id, dni, nombre, area, entregado)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, actualizado`,
		asg.SolicitudID, asg.EquipoID, asg.DNI, asg.Nombre, asg.Area, asg.Entregado,
	).Scan(&asg.ID, &asg.Actualizado); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Version++
	return nil
}

func scanTelephony(row pgx.Row) (*domain.SolicitudTelefonia, error) {
	var s domain.SolicitudTelefonia
	var motivo, asume, numero, anterior *string
	var cuotas *int
	var evidencia *bool

	if err := row.Scan(
		&s.ID, &s.DNI, &s.Nombre, &s.Area, &s.Cargo, &s.LineaReferencia,
		&s.Tipo, &s.Servicio, &s.Plan,
		&motivo, &asume, &cuotas, &evidencia, &numero, &anterior,
		&s.Estado, &s.AprobacionGerencia, &s.FechaAprobacionGerencia, &s.AprobacionGerenciaNombre,
		&s.AprobacionAdmin, &s.FechaAprobacionAdmin, &s.AprobacionAdminNombre,
		&s.FechaEntrega, &s.RecibidoPor, &s.EquipoAsignadoID,
		&s.CreatedBy, &s.CreatedByEmail, &s.CreatedByName, &s.Creado, &s.Version,
	); err != nil {
		return nil, err
	}

	if motivo != nil {
		rep := domain.Reposicion{Motivo: domain.MotivoIncidencia(*motivo)}
		if asume != nil {
			rep.AsumeCosto = domain.AsumeCosto(*asume)
		}
		if cuotas != nil {
			rep.Cuotas = *cuotas
		}
		if evidencia != nil {
			rep.TieneEvidencia = *evidencia
		}
		if numero != nil {
			rep.NumeroAfectado = *numero
		}
		if anterior != nil {
			rep.EquipoAnterior = *anterior
		}
		s.Reposicion = &rep
	}
	return &s, nil
}
