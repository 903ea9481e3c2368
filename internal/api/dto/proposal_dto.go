package dto

import (
	"time"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// TramoRequest is one leg of a proposal being created.
type TramoRequest struct {
	Origen    string    `json:"origen" validate:"required"`
	Destino   string    `json:"destino" validate:"required"`
	Salida    time.Time `json:"salida" validate:"required"`
	Llegada   time.Time `json:"llegada" validate:"required"`
	Aerolinea string    `json:"aerolinea"`
	NroVuelo  string    `json:"nro_vuelo"`
	Tarifa    string    `json:"tarifa"`
}

// CreatePropuestaRequest payload for a new candidate itinerary.
type CreatePropuestaRequest struct {
	Proveedor  string         `json:"proveedor" validate:"required"`
	CostoTotal float64        `json:"costo_total" validate:"required,gt=0"`
	Moneda     string         `json:"moneda" validate:"required"`
	Sentido    string         `json:"sentido" validate:"required,oneof=IDA VUELTA AMBOS"`
	Tramos     []TramoRequest `json:"tramos" validate:"required,min=1,dive"`
}

// SeleccionRequest picks proposals by number; an AMBOS proposal goes in the
// ida slot alone.
type SeleccionRequest struct {
	Ida    *int `json:"ida"`
	Vuelta *int `json:"vuelta"`
}

// TramoResponse is the wire shape of one leg.
type TramoResponse struct {
	Secuencia int       `json:"secuencia"`
	Origen    string    `json:"origen"`
	Destino   string    `json:"destino"`
	Salida    time.Time `json:"salida"`
	Llegada   time.Time `json:"llegada"`
	Aerolinea string    `json:"aerolinea"`
	NroVuelo  string    `json:"nro_vuelo"`
	Tarifa    string    `json:"tarifa"`
}

// PropuestaResponse is the wire shape of one proposal.
type PropuestaResponse struct {
	Codigo     string          `json:"codigo"`
	Nro        int             `json:"nro_propuesta"`
	Proveedor  string          `json:"proveedor"`
	CostoTotal float64         `json:"costo_total"`
	Moneda     string          `json:"moneda"`
	Sentido    string          `json:"sentido"`
	Tramos     []TramoResponse `json:"tramos"`
}

// FromPropuesta maps a proposal onto the wire shape.
func FromPropuesta(p *domain.Propuesta) PropuestaResponse {
	resp := PropuestaResponse{
		Codigo:     p.Codigo,
		Nro:        p.Nro,
		Proveedor:  p.Proveedor,
		CostoTotal: p.CostoTotal,
		Moneda:     p.Moneda,
		Sentido:    string(p.Sentido),
	}
	for _, t := range p.Tramos {
		resp.Tramos = append(resp.Tramos, TramoResponse{
			Secuencia: t.Secuencia,
			Origen:    t.Origen,
			Destino:   t.Destino,
			Salida:    t.Salida,
			Llegada:   t.Llegada,
			Aerolinea: t.Aerolinea,
			NroVuelo:  t.NroVuelo,
			Tarifa:    t.Tarifa,
		})
	}
	return resp
}
