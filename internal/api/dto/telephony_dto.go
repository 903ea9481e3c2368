package dto

import (
	"time"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// ReposicionRequest carries replacement-specific fields.
type ReposicionRequest struct {
	Motivo         string `json:"motivo" validate:"required,oneof=ROBO PERDIDA DETERIORO"`
	AsumeCosto     string `json:"asume_costo" validate:"required,oneof=EMPRESA USUARIO"`
	Cuotas         int    `json:"cuotas" validate:"min=0"`
	TieneEvidencia bool   `json:"tiene_evidencia"`
	NumeroAfectado string `json:"numero_afectado"`
	EquipoAnterior string `json:"equipo_anterior"`
}

// CreateTelefoniaRequest payload for a new telephony request.
type CreateTelefoniaRequest struct {
	DNI             string             `json:"dni" validate:"required"`
	Nombre          string             `json:"nombre" validate:"required"`
	Area            string             `json:"area"`
	Cargo           string             `json:"cargo"`
	LineaReferencia string             `json:"linea_referencia"`
	Tipo            string             `json:"tipo" validate:"required"`
	Servicio        string             `json:"servicio"`
	Plan            string             `json:"plan"`
	Reposicion      *ReposicionRequest `json:"reposicion,omitempty"`
}

// DecisionRequest payload for an approval decision.
type DecisionRequest struct {
	Aprobada *bool `json:"aprobada" validate:"required"`
}

// EntregaRequest payload for delivery registration.
type EntregaRequest struct {
	EquipoID string `json:"equipo_id"`
	Firma    string `json:"firma" validate:"required"`
}

// AsignacionUpdateRequest rewrites the end-user of a delivered device.
type AsignacionUpdateRequest struct {
	DNI    string `json:"dni" validate:"required"`
	Nombre string `json:"nombre" validate:"required"`
	Area   string `json:"area"`
}

// TelefoniaResponse is the wire shape of a telephony ticket.
type TelefoniaResponse struct {
	ID                       string     `json:"id"`
	DNI                      string     `json:"dni"`
	Nombre                   string     `json:"nombre"`
	Area                     string     `json:"area"`
	Cargo                    string     `json:"cargo"`
	LineaReferencia          string     `json:"linea_referencia"`
	Tipo                     string     `json:"tipo"`
	Servicio                 string     `json:"servicio"`
	Plan                     string     `json:"plan"`
	Estado                   string     `json:"estado"`
	AprobacionGerencia       *bool      `json:"aprobacion_gerencia"`
	FechaAprobacionGerencia  *time.Time `json:"fecha_aprobacion_gerencia"`
	AprobacionGerenciaNombre *string    `json:"aprobacion_gerencia_nombre"`
	AprobacionAdmin          *bool      `json:"aprobacion_admin"`
	FechaAprobacionAdmin     *time.Time `json:"fecha_aprobacion_admin"`
	AprobacionAdminNombre    *string    `json:"aprobacion_admin_nombre"`
	FechaEntrega             *time.Time `json:"fecha_entrega"`
	RecibidoPor              *string    `json:"recibido_por"`
	EquipoAsignadoID         *string    `json:"equipo_asignado_id"`
	Creado                   time.Time  `json:"creado"`
}

// FromTelefonia maps the domain aggregate onto the wire shape.
func FromTelefonia(s *domain.SolicitudTelefonia) TelefoniaResponse {
	return TelefoniaResponse{
		ID:                       s.ID,
		DNI:                      s.DNI,
		Nombre:                   s.Nombre,
		Area:                     s.Area,
		Cargo:                    s.Cargo,
		LineaReferencia:          s.LineaReferencia,
		Tipo:                     string(s.Tipo),
		Servicio:                 s.Servicio,
		Plan:                     s.Plan,
		Estado:                   string(s.Estado),
		AprobacionGerencia:       s.AprobacionGerencia,
		FechaAprobacionGerencia:  s.FechaAprobacionGerencia,
		AprobacionGerenciaNombre: s.AprobacionGerenciaNombre,
		AprobacionAdmin:          s.AprobacionAdmin,
		FechaAprobacionAdmin:     s.FechaAprobacionAdmin,
		AprobacionAdminNombre:    s.AprobacionAdminNombre,
		FechaEntrega:             s.FechaEntrega,
		RecibidoPor:              s.RecibidoPor,
		EquipoAsignadoID:         s.EquipoAsignadoID,
		Creado:                   s.Creado,
	}
}

// AsignacionResponse is the wire shape of a device assignment record.
type AsignacionResponse struct {
	ID          string    `json:"id"`
	SolicitudID string    `json:"solicitud_id"`
	EquipoID    string    `json:"equipo_id"`
	DNI         string    `json:"dni"`
	Nombre      string    `json:"nombre"`
	Area        string    `json:"area"`
	Entregado   time.Time `json:"entregado"`
	Actualizado time.Time `json:"actualizado"`
}

// FromAsignacion maps an assignment record.
func FromAsignacion(a *domain.Asignacion) AsignacionResponse {
	return AsignacionResponse{
		ID:          a.ID,
		SolicitudID: a.SolicitudID,
		EquipoID:    a.EquipoID,
		DNI:         a.DNI,
		Nombre:      a.Nombre,
		Area:        a.Area,
		Entregado:   a.Entregado,
		Actualizado: a.Actualizado,
	}
}

// EquipoRequest registers a device or chip into inventory.
type EquipoRequest struct {
	Descripcion string `json:"descripcion" validate:"required"`
	Serie       string `json:"serie"`
}

// EquipoResponse is the wire shape of an inventory item.
type EquipoResponse struct {
	ID          string    `json:"id"`
	Descripcion string    `json:"descripcion"`
	Serie       string    `json:"serie"`
	Estado      string    `json:"estado"`
	Creado      time.Time `json:"creado"`
}

// FromEquipo maps an inventory item.
func FromEquipo(e *domain.Equipo) EquipoResponse {
	return EquipoResponse{
		ID:          e.ID,
		Descripcion: e.Descripcion,
		Serie:       e.Serie,
		Estado:      string(e.Estado),
		Creado:      e.Creado,
	}
}
