package domain

import "time"

// Sentido tags a proposal's direction.
type Sentido string

const (
	SentidoIda    Sentido = "IDA"
	SentidoVuelta Sentido = "VUELTA"
	SentidoAmbos  Sentido = "AMBOS"
)

// Tramo is one leg of a flight proposal. Proposal-level fields (proveedor,
// costo, moneda, sentido) are replicated on every row for denormalized storage.
type Tramo struct {
	ID        string
	Codigo    string
	Nro       int
	Secuencia int
	Origen    string
	Destino   string
	Salida    time.Time
	Llegada   time.Time
	Aerolinea string
	NroVuelo  string
	Tarifa    string
	Creado    time.Time
}

// Propuesta groups the tramos sharing (codigo, nro) into one candidate
// itinerary. Proposals are immutable; corrections create a new number.
type Propuesta struct {
	Codigo     string
	Nro        int
	Proveedor  string
	CostoTotal float64
	Moneda     string
	Sentido    Sentido
	Tramos     []Tramo
}

// PrimerTramo returns the lowest-sequence segment, or nil when empty.
func (p *Propuesta) PrimerTramo() *Tramo {
	if len(p.Tramos) == 0 {
		return nil
	}
	return &p.Tramos[0]
}

// UltimoTramo returns the highest-sequence segment, or nil when empty.
func (p *Propuesta) UltimoTramo() *Tramo {
	if len(p.Tramos) == 0 {
		return nil
	}
	return &p.Tramos[len(p.Tramos)-1]
}
