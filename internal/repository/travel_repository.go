package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// TravelRepository encapsulates travel/lodging ticket persistence.
type TravelRepository interface {
	// Create assigns the next sequential PYH##### code and inserts the ticket.
	Create(ctx context.Context, s *domain.SolicitudViaje) error
	GetByCodigo(ctx context.Context, codigo string) (*domain.SolicitudViaje, error)
	List(ctx context.Context) ([]domain.SolicitudViaje, error)
	Update(ctx context.Context, s *domain.SolicitudViaje) error
}

type travelRepository struct {
	pool *pgxpool.Pool
}

// NewTravelRepository instantiates repository.
func NewTravelRepository(pool *pgxpool.Pool) TravelRepository {
	return &travelRepository{pool: pool}
}

const travelColumns = `
        codigo, dni, nombre, gerencia, tipo, subtipo,
        salida, retorno, lugar, inicio, fin, traslado, alimentacion, motivo,
        estado, proveedor, pase_compra, costo, costo_vence_en, costo_aprobado,
        factura, cerrado_en,
        propuesta_ida_admin, propuesta_vuelta_admin,
        propuesta_ida_gerencia, propuesta_vuelta_gerencia,
        created_by, created_by_email, created_by_name, creado, version`

func (r *travelRepository) Create(ctx context.Context, s *domain.SolicitudViaje) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Code sequence is max-suffix based; the advisory lock serializes
	// concurrent creators so two tickets never draw the same number.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('solicitudes_viaje_codigo'))`); err != nil {
		return err
	}

	var max int
	if err := tx.QueryRow(ctx, `
        SELECT COALESCE(MAX(CAST(SUBSTRING(codigo FROM 4) AS INTEGER)), 0)
        FROM solicitudes_viaje`,
	).Scan(&max); err != nil {
		return err
	}
	s.Codigo = fmt.Sprintf("PYH%05d", max+1)

	if err := tx.QueryRow(ctx, `
        INSERT INTO solicitudes_viaje (
            codigo, dni, nombre, gerencia, tipo, subtipo,
            salida, retorno, lugar, inicio, fin, traslado, alimentacion, motivo,
            estado, pase_compra, created_by, created_by_email, created_by_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING creado, version`,
		s.Codigo, s.DNI, s.Nombre, s.Gerencia, s.Tipo, nullIfEmpty(string(s.Subtipo)),
		s.Salida, s.Retorno, s.Lugar, s.Inicio, s.Fin, s.Traslado, s.Alimentacion, s.Motivo,
		s.Estado, s.PaseCompra, s.CreatedBy, s.CreatedByEmail, s.CreatedByName,
	).Scan(&s.Creado, &s.Version); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *travelRepository) GetByCodigo(ctx context.Context, codigo string) (*domain.SolicitudViaje, error) {
	query := `SELECT ` + travelColumns + ` FROM solicitudes_viaje WHERE codigo=$1`
	return scanTravel(r.pool.QueryRow(ctx, query, codigo))
}

func (r *travelRepository) List(ctx context.Context) ([]domain.SolicitudViaje, error) {
	query := `SELECT ` + travelColumns + ` FROM solicitudes_viaje ORDER BY creado ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SolicitudViaje
	for rows.Next() {
		s, err := scanTravel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *travelRepository) Update(ctx context.Context, s *domain.SolicitudViaje) error {
	const query = `
        UPDATE solicitudes_viaje SET
            salida=$1, retorno=$2, estado=$3, proveedor=$4, pase_compra=$5,
            costo=$6, costo_vence_en=$7, costo_aprobado=$8, factura=$9, cerrado_en=$10,
            propuesta_ida_admin=$11, propuesta_vuelta_admin=$12,
            propuesta_ida_gerencia=$13, propuesta_vuelta_gerencia=$14,
            version=version+1
        WHERE codigo=$15 AND version=$16`

	cmd, err := r.pool.Exec(ctx, query,
		s.Salida, s.Retorno, s.Estado, s.Proveedor, s.PaseCompra,
		s.Costo, s.CostoVenceEn, s.CostoAprobado, s.Factura, s.CerradoEn,
		s.PropuestaIdaAdmin, s.PropuestaVueltaAdmin,
		s.PropuestaIdaGerencia, s.PropuestaVueltaGerencia,
		s.Codigo, s.Version,
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

func scanTravel(row pgx.Row) (*domain.SolicitudViaje, error) {
	var s domain.SolicitudViaje
	var subtipo *string
	if err := row.Scan(
		&s.Codigo, &s.DNI, &s.Nombre, &s.Gerencia, &s.Tipo, &subtipo,
		&s.Salida, &s.Retorno, &s.Lugar, &s.Inicio, &s.Fin, &s.Traslado, &s.Alimentacion, &s.Motivo,
		&s.Estado, &s.Proveedor, &s.PaseCompra, &s.Costo, &s.CostoVenceEn, &s.CostoAprobado,
		&s.Factura, &s.CerradoEn,
		&s.PropuestaIdaAdmin, &s.PropuestaVueltaAdmin,
		&s.PropuestaIdaGerencia, &s.PropuestaVueltaGerencia,
		&s.CreatedBy, &s.CreatedByEmail, &s.CreatedByName, &s.Creado, &s.Version,
	); err != nil {
		return nil, err
	}
	if subtipo != nil {
		s.Subtipo = domain.SubtipoViaje(*subtipo)
	}
	return &s, nil
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
