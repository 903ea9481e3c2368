package domain

import "time"

// EstadoEquipo enumerates physical device/SIM availability.
type EstadoEquipo string

const (
	EquipoDisponible EstadoEquipo = "Disponible"
	EquipoAsignado   EstadoEquipo = "Asignado"
)

// Equipo is a physical device or chip handed out under a telephony ticket.
type Equipo struct {
	ID          string
	Descripcion string
	Serie       string
	Estado      EstadoEquipo
	Creado      time.Time
}

// Asignacion records the final end-user of a delivered device. The end-user
// fields stay editable after delivery, independent of the ticket lifecycle.
type Asignacion struct {
	ID          string
	SolicitudID string
	EquipoID    string
	DNI         string
	Nombre      string
	Area        string
	Entregado   time.Time
	Actualizado time.Time
}
