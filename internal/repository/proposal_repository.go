package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// ProposalRepository persists flight proposals as denormalized segment rows.
type ProposalRepository interface {
	// Create assigns the next proposal number for the ticket and inserts one
	// row per segment. Proposals are immutable after this call.
	Create(ctx context.Context, p *domain.Propuesta) error
	ListByCodigo(ctx context.Context, codigo string) ([]domain.Propuesta, error)
	GetByNro(ctx context.Context, codigo string, nro int) (*domain.Propuesta, error)
}

type proposalRepository struct {
	pool *pgxpool.Pool
}

// NewProposalRepository instantiates repository.
func NewProposalRepository(pool *pgxpool.Pool) ProposalRepository {
	return &proposalRepository{pool: pool}
}

func (r *proposalRepository) Create(ctx context.Context, p *domain.Propuesta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Numbering is per ticket, max-based, starting at 1. The advisory lock
	// keeps concurrent provider sessions from reusing a number.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('tramos_'||$1))`, p.Codigo); err != nil {
		return err
	}

	var max int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(nro_propuesta), 0) FROM tramos WHERE solicitud_codigo=$1`,
		p.Codigo,
	).Scan(&max); err != nil {
		return err
	}
	p.Nro = max + 1

	for i := range p.Tramos {
		t := &p.Tramos[i]
		t.Codigo = p.Codigo
		t.Nro = p.Nro
		t.Secuencia = i + 1
		if err := tx.QueryRow(ctx, `
            INSERT INTO tramos (
                solicitud_codigo, nro_propuesta, secuencia,
                origen, destino, salida, llegada, aerolinea, nro_vuelo, tarifa,
                proveedor, costo_total, moneda, sentido)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
            RETURNING id, creado`,
			t.Codigo, t.Nro, t.Secuencia,
			t.Origen, t.Destino, t.Salida, t.Llegada, t.Aerolinea, t.NroVuelo, t.Tarifa,
			p.Proveedor, p.CostoTotal, p.Moneda, p.Sentido,
		).Scan(&t.ID, &t.Creado); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const tramoColumns = `
        id, solicitud_codigo, nro_propuesta, secuencia,
        origen, destino, salida, llegada, aerolinea, nro_vuelo, tarifa,
        proveedor, costo_total, moneda, sentido, notas, creado`

func (r *proposalRepository) ListByCodigo(ctx context.Context, codigo string) ([]domain.Propuesta, error) {
	query := `SELECT ` + tramoColumns + `
        FROM tramos WHERE solicitud_codigo=$1
        ORDER BY nro_propuesta ASC, secuencia ASC`
	rows, err := r.pool.Query(ctx, query, codigo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return groupProposals(rows)
}

func (r *proposalRepository) GetByNro(ctx context.Context, codigo string, nro int) (*domain.Propuesta, error) {
	query := `SELECT ` + tramoColumns + `
        FROM tramos WHERE solicitud_codigo=$1 AND nro_propuesta=$2
        ORDER BY secuencia ASC`
	rows, err := r.pool.Query(ctx, query, codigo, nro)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals, err := groupProposals(rows)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &proposals[0], nil
}

func groupProposals(rows pgx.Rows) ([]domain.Propuesta, error) {
	var result []domain.Propuesta
	for rows.Next() {
		var t domain.Tramo
		var proveedor, moneda, sentido *string
		var costo *float64
		var notas *string
		if err := rows.Scan(
			&t.ID, &t.Codigo, &t.Nro, &t.Secuencia,
			&t.Origen, &t.Destino, &t.Salida, &t.Llegada, &t.Aerolinea, &t.NroVuelo, &t.Tarifa,
			&proveedor, &costo, &moneda, &sentido, &notas, &t.Creado,
		); err != nil {
			return nil, err
		}

		// Rows imported before the typed columns existed carry their
		// moneda/sentido inside the free-text notes field.
		legacyMoneda, legacySentido := ParseLegacyTags(deref(notas))
		if moneda == nil || *moneda == "" {
			moneda = &legacyMoneda
		}
		if sentido == nil || *sentido == "" {
			s := string(legacySentido)
			sentido = &s
		}

		if len(result) == 0 || result[len(result)-1].Nro != t.Nro {
			result = append(result, domain.Propuesta{
				Codigo:    t.Codigo,
				Nro:       t.Nro,
				Proveedor: deref(proveedor),
				Moneda:    *moneda,
				Sentido:   domain.Sentido(*sentido),
			})
			if costo != nil {
				result[len(result)-1].CostoTotal = *costo
			}
		}
		p := &result[len(result)-1]
		p.Tramos = append(p.Tramos, t)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
