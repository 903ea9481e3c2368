package dto

import (
	"time"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// CreateViajeRequest payload for a new travel/lodging request.
type CreateViajeRequest struct {
	DNI          string     `json:"dni" validate:"required"`
	Nombre       string     `json:"nombre" validate:"required"`
	Gerencia     string     `json:"gerencia"`
	Tipo         string     `json:"tipo" validate:"required,oneof=Pasaje Hospedaje"`
	Subtipo      string     `json:"subtipo"`
	Salida       *time.Time `json:"salida"`
	Retorno      *time.Time `json:"retorno"`
	Lugar        string     `json:"lugar"`
	Inicio       *time.Time `json:"inicio"`
	Fin          *time.Time `json:"fin"`
	Traslado     bool       `json:"traslado"`
	Alimentacion bool       `json:"alimentacion"`
	Motivo       string     `json:"motivo"`
}

// ProveedorRequest assigns a provider.
type ProveedorRequest struct {
	Proveedor string `json:"proveedor" validate:"required"`
}

// CostoRequest quotes a cost with a validity window in hours.
type CostoRequest struct {
	Monto         float64 `json:"monto" validate:"required,gt=0"`
	HorasVigencia int     `json:"horas_vigencia" validate:"required,min=1"`
}

// AprobarCostoRequest records the approval decision.
type AprobarCostoRequest struct {
	Aprueba *bool `json:"aprueba" validate:"required"`
}

// FacturaRequest attaches the provider invoice.
type FacturaRequest struct {
	Factura string `json:"factura" validate:"required"`
}

// ViajeResponse is the wire shape of a travel ticket.
type ViajeResponse struct {
	Codigo       string     `json:"codigo"`
	DNI          string     `json:"dni"`
	Nombre       string     `json:"nombre"`
	Gerencia     string     `json:"gerencia"`
	Tipo         string     `json:"tipo"`
	Subtipo      string     `json:"subtipo,omitempty"`
	Salida       *time.Time `json:"salida,omitempty"`
	Retorno      *time.Time `json:"retorno,omitempty"`
	Lugar        string     `json:"lugar,omitempty"`
	Inicio       *time.Time `json:"inicio,omitempty"`
	Fin          *time.Time `json:"fin,omitempty"`
	Traslado     bool       `json:"traslado"`
	Alimentacion bool       `json:"alimentacion"`
	Motivo       string     `json:"motivo"`

	Estado        string     `json:"estado"`
	Proveedor     *string    `json:"proveedor"`
	PaseCompra    bool       `json:"pase_compra"`
	Costo         *float64   `json:"costo"`
	CostoVenceEn  *time.Time `json:"costo_vence_en"`
	CostoAprobado *bool      `json:"costo_aprobado"`
	Factura       *string    `json:"factura"`
	CerradoEn     *time.Time `json:"cerrado_en"`

	PropuestaIdaAdmin       *int `json:"propuesta_ida_admin"`
	PropuestaVueltaAdmin    *int `json:"propuesta_vuelta_admin"`
	PropuestaIdaGerencia    *int `json:"propuesta_ida_gerencia"`
	PropuestaVueltaGerencia *int `json:"propuesta_vuelta_gerencia"`

	Creado time.Time `json:"creado"`
}

// FromViaje maps the domain aggregate onto the wire shape.
func FromViaje(s *domain.SolicitudViaje) ViajeResponse {
	return ViajeResponse{
		Codigo:       s.Codigo,
		DNI:          s.DNI,
		Nombre:       s.Nombre,
		Gerencia:     s.Gerencia,
		Tipo:         string(s.Tipo),
		Subtipo:      string(s.Subtipo),
		Salida:       s.Salida,
		Retorno:      s.Retorno,
		Lugar:        s.Lugar,
		Inicio:       s.Inicio,
		Fin:          s.Fin,
		Traslado:     s.Traslado,
		Alimentacion: s.Alimentacion,
		Motivo:       s.Motivo,

		Estado:        string(s.Estado),
		Proveedor:     s.Proveedor,
		PaseCompra:    s.PaseCompra,
		Costo:         s.Costo,
		CostoVenceEn:  s.CostoVenceEn,
		CostoAprobado: s.CostoAprobado,
		Factura:       s.Factura,
		CerradoEn:     s.CerradoEn,

		PropuestaIdaAdmin:       s.PropuestaIdaAdmin,
		PropuestaVueltaAdmin:    s.PropuestaVueltaAdmin,
		PropuestaIdaGerencia:    s.PropuestaIdaGerencia,
		PropuestaVueltaGerencia: s.PropuestaVueltaGerencia,

		Creado: s.Creado,
	}
}
