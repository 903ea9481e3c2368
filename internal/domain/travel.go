package domain

import "time"

// EstadoViaje enumerates lifecycle states for travel/lodging tickets.
type EstadoViaje string

const (
	EstadoPendiente      EstadoViaje = "Pendiente"
	EstadoEnProceso      EstadoViaje = "En proceso"
	EstadoCostoAprobado  EstadoViaje = "Costo aprobado"
	EstadoConPase        EstadoViaje = "Con pase"
	EstadoFacturado      EstadoViaje = "Facturado"
	EstadoCerrado        EstadoViaje = "Cerrado"
	EstadoRechazado      EstadoViaje = "Rechazado"

	// Air-travel path, driven by the proposal mechanism.
	EstadoPendientePropuesta EstadoViaje = "Pendiente propuesta"
	EstadoPropuestaRealizada EstadoViaje = "Propuesta realizada"
	EstadoGerenciaAprobado   EstadoViaje = "Gerencia aprobado"
	EstadoPendienteCompra    EstadoViaje = "Pendiente de compra"
	EstadoCompraRealizada    EstadoViaje = "Compra realizada"
)

// TipoViaje distinguishes travel from lodging tickets.
type TipoViaje string

const (
	TipoPasaje    TipoViaje = "Pasaje"
	TipoHospedaje TipoViaje = "Hospedaje"
)

// SubtipoViaje refines Pasaje tickets.
type SubtipoViaje string

const (
	SubtipoAereo     SubtipoViaje = "Aéreo"
	SubtipoTerrestre SubtipoViaje = "Terrestre"
)

// SolicitudViaje is the aggregate for pasaje/hospedaje requests, keyed by a
// sequential human-readable code (PYH#####).
type SolicitudViaje struct {
	Codigo   string
	DNI      string
	Nombre   string
	Gerencia string
	Tipo     TipoViaje
	Subtipo  SubtipoViaje

	// Pasaje schedule.
	Salida  *time.Time
	Retorno *time.Time
	// Hospedaje schedule and place.
	Lugar  string
	Inicio *time.Time
	Fin    *time.Time

	Traslado     bool
	Alimentacion bool
	Motivo       string

	Estado        EstadoViaje
	Proveedor     *string
	PaseCompra    bool
	Costo         *float64
	CostoVenceEn  *time.Time
	CostoAprobado *bool
	Factura       *string
	CerradoEn     *time.Time

	// Admin selections are authoritative for the purchase pass; Gerencia
	// selections are recorded for history only.
	PropuestaIdaAdmin       *int
	PropuestaVueltaAdmin    *int
	PropuestaIdaGerencia    *int
	PropuestaVueltaGerencia *int

	CreatedBy      string
	CreatedByEmail string
	CreatedByName  string
	Creado         time.Time
	Version        int64
}

// Aereo reports whether the ticket follows the proposal-driven air path.
func (s *SolicitudViaje) Aereo() bool {
	return s.Tipo == TipoPasaje && s.Subtipo == SubtipoAereo
}

// HasCostoVigente reports whether a quoted cost is still within its validity
// window at the given instant.
func (s *SolicitudViaje) HasCostoVigente(now time.Time) bool {
	return s.Costo != nil && s.CostoVenceEn != nil && now.Before(*s.CostoVenceEn)
}

// CostoFrozen reports whether the quote is locked in by approval and therefore
// immune to expiry.
func (s *SolicitudViaje) CostoFrozen() bool {
	return s.CostoAprobado != nil && *s.CostoAprobado
}

// AdminSelectionDone reports whether an authoritative proposal choice exists.
func (s *SolicitudViaje) AdminSelectionDone() bool {
	return s.PropuestaIdaAdmin != nil || s.PropuestaVueltaAdmin != nil
}
