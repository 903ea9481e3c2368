package events

import (
	"time"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTelephonyCreated   EventType = "telephony_created"
	EventTelephonyDecided   EventType = "telephony_decided"
	EventTelephonyDelivered EventType = "telephony_delivered"
	EventTravelCreated      EventType = "travel_created"
	EventTravelStateChanged EventType = "travel_state_changed"
	EventCostQuoted         EventType = "cost_quoted"
	EventCostExpired        EventType = "cost_expired"
	EventProposalCreated    EventType = "proposal_created"
	EventProposalSelected   EventType = "proposal_selected"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name,omitempty"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by the workflow engines.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TelephonyCreatedPayload payload.
type TelephonyCreatedPayload struct {
	Tipo     domain.TipoSolicitud   `json:"tipo"`
	Servicio string                 `json:"servicio"`
	Estado   domain.EstadoTelefonia `json:"estado"`
}

// TelephonyDecidedPayload payload.
type TelephonyDecidedPayload struct {
	Tier      string                 `json:"tier"`
	Aprobada  bool                   `json:"aprobada"`
	OldEstado domain.EstadoTelefonia `json:"old_estado"`
	NewEstado domain.EstadoTelefonia `json:"new_estado"`
}

// TelephonyDeliveredPayload payload.
type TelephonyDeliveredPayload struct {
	EquipoID    string `json:"equipo_id"`
	RecibidoPor string `json:"recibido_por"`
}

// TravelCreatedPayload payload.
type TravelCreatedPayload struct {
	Codigo  string              `json:"codigo"`
	Tipo    domain.TipoViaje    `json:"tipo"`
	Subtipo domain.SubtipoViaje `json:"subtipo,omitempty"`
}

// TravelStateChangedPayload payload.
type TravelStateChangedPayload struct {
	OldEstado domain.EstadoViaje `json:"old_estado"`
	NewEstado domain.EstadoViaje `json:"new_estado"`
	Comment   string             `json:"comment,omitempty"`
}

// CostQuotedPayload payload.
type CostQuotedPayload struct {
	Monto   float64   `json:"monto"`
	VenceEn time.Time `json:"vence_en"`
}

// CostExpiredPayload payload.
type CostExpiredPayload struct {
	Monto     float64            `json:"monto"`
	OldEstado domain.EstadoViaje `json:"old_estado"`
	NewEstado domain.EstadoViaje `json:"new_estado"`
}

// ProposalCreatedPayload payload.
type ProposalCreatedPayload struct {
	Nro     int            `json:"nro"`
	Sentido domain.Sentido `json:"sentido"`
	Costo   float64        `json:"costo"`
	Moneda  string         `json:"moneda"`
	Tramos  int            `json:"tramos"`
}

// ProposalSelectedPayload payload.
type ProposalSelectedPayload struct {
	Ida        *int    `json:"ida,omitempty"`
	Vuelta     *int    `json:"vuelta,omitempty"`
	CostoTotal float64 `json:"costo_total"`
	Advisory   bool    `json:"advisory"`
}
