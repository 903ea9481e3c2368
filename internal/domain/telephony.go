package domain

import "time"

// EstadoTelefonia enumerates lifecycle states for telephony tickets.
type EstadoTelefonia string

const (
	EstadoPendienteGerencia EstadoTelefonia = "Pendiente Gerencia"
	EstadoPendienteAdmin    EstadoTelefonia = "Pendiente Admin"
	EstadoRevisionAdmin     EstadoTelefonia = "Revisión Admin"
	EstadoProgramarEntrega  EstadoTelefonia = "Programar Entrega"
	EstadoEntregado         EstadoTelefonia = "Entregado"
	EstadoRechazada         EstadoTelefonia = "Rechazada"
)

// TipoSolicitud enumerates telephony request kinds.
type TipoSolicitud string

const (
	TipoLineaNueva      TipoSolicitud = "Línea Nueva"
	TipoLineaSegundoUso TipoSolicitud = "Línea de Segundo Uso"
	TipoRenovacion      TipoSolicitud = "Renovación"
	TipoReposicion      TipoSolicitud = "Reposición"
)

// OperadorSoloChip marks chip-only requests, which enter at Revisión Admin.
const OperadorSoloChip = "SOLO CHIP"

// MotivoIncidencia enumerates causes for a Reposición request.
type MotivoIncidencia string

const (
	MotivoRobo      MotivoIncidencia = "ROBO"
	MotivoPerdida   MotivoIncidencia = "PERDIDA"
	MotivoDeterioro MotivoIncidencia = "DETERIORO"
)

// AsumeCosto identifies who bears the replacement cost.
type AsumeCosto string

const (
	AsumeCostoEmpresa AsumeCosto = "EMPRESA"
	AsumeCostoUsuario AsumeCosto = "USUARIO"
)

// Reposicion carries the fields specific to replacement requests.
type Reposicion struct {
	Motivo         MotivoIncidencia
	AsumeCosto     AsumeCosto
	Cuotas         int
	TieneEvidencia bool
	NumeroAfectado string
	EquipoAnterior string
}

// SolicitudTelefonia is the aggregate for telephony line/device requests.
// The beneficiary snapshot is denormalized at creation and never edited.
type SolicitudTelefonia struct {
	ID              string
	DNI             string
	Nombre          string
	Area            string
	Cargo           string
	LineaReferencia string
	Tipo            TipoSolicitud
	Servicio        string
	Plan            string
	Reposicion      *Reposicion

	Estado                   EstadoTelefonia
	AprobacionGerencia       *bool
	FechaAprobacionGerencia  *time.Time
	AprobacionGerenciaNombre *string
	AprobacionAdmin          *bool
	FechaAprobacionAdmin     *time.Time
	AprobacionAdminNombre    *string
	FechaEntrega             *time.Time
	RecibidoPor              *string
	EquipoAsignadoID         *string

	CreatedBy      string
	CreatedByEmail string
	CreatedByName  string
	Creado         time.Time
	Version        int64
}

// Terminal reports whether no further transitions are allowed.
func (s *SolicitudTelefonia) Terminal() bool {
	return s.Estado == EstadoEntregado || s.Estado == EstadoRechazada
}

// EntryState returns the state a new request starts in. Certain kinds and
// chip-only requests bypass the Gerencia tier and open under Admin review.
func EntryState(tipo TipoSolicitud, servicio string) EstadoTelefonia {
	switch tipo {
	case TipoReposicion, TipoRenovacion, TipoLineaSegundoUso:
		return EstadoRevisionAdmin
	}
	if servicio == OperadorSoloChip {
		return EstadoRevisionAdmin
	}
	return EstadoPendienteGerencia
}
