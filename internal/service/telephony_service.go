package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/events"
	"github.com/spec-kit/solicitudes-service/internal/repository"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// TelephonyService is the workflow engine for telephony line/device requests.
type TelephonyService struct {
	tickets    repository.TelephonyRepository
	devices    repository.DeviceRepository
	dispatcher events.Dispatcher
	locks      *ticketLocks
	now        func() time.Time
}

// TelephonyDependencies bundles collaborators for the engine.
type TelephonyDependencies struct {
	TicketRepo repository.TelephonyRepository
	DeviceRepo repository.DeviceRepository
	Dispatcher events.Dispatcher
}

// TelephonyCreateInput describes a new telephony request.
type TelephonyCreateInput struct {
	DNI             string
	Nombre          string
	Area            string
	Cargo           string
	LineaReferencia string
	Tipo            domain.TipoSolicitud
	Servicio        string
	Plan            string
	Reposicion      *domain.Reposicion
}

// NewTelephonyService constructs the engine.
func NewTelephonyService(deps TelephonyDependencies) *TelephonyService {
	return &TelephonyService{
		tickets:    deps.TicketRepo,
		devices:    deps.DeviceRepo,
		dispatcher: deps.Dispatcher,
		locks:      newTicketLocks(),
		now:        time.Now,
	}
}

// Create registers a request. The entry state depends on the request kind:
// replacement, renewal, second-use and chip-only requests open under Admin
// review, the rest wait for Gerencia.
func (s *TelephonyService) Create(ctx context.Context, actor Identity, input TelephonyCreateInput) (*domain.SolicitudTelefonia, error) {
	if strings.TrimSpace(input.DNI) == "" || strings.TrimSpace(input.Nombre) == "" {
		return nil, apperrors.NewValidationError("dni and nombre required", nil)
	}
	switch input.Tipo {
	case domain.TipoLineaNueva, domain.TipoLineaSegundoUso, domain.TipoRenovacion, domain.TipoReposicion:
	default:
		return nil, apperrors.NewValidationError("unknown tipo de solicitud", map[string]any{"tipo": input.Tipo})
	}
	if input.Tipo == domain.TipoReposicion {
		rep := input.Reposicion
		if rep == nil {
			return nil, apperrors.NewValidationError("reposicion details required", nil)
		}
		switch rep.Motivo {
		case domain.MotivoRobo, domain.MotivoPerdida, domain.MotivoDeterioro:
		default:
			return nil, apperrors.NewValidationError("unknown motivo de incidencia", map[string]any{"motivo": rep.Motivo})
		}
		if rep.AsumeCosto != domain.AsumeCostoEmpresa && rep.AsumeCosto != domain.AsumeCostoUsuario {
			return nil, apperrors.NewValidationError("asume_costo must be EMPRESA or USUARIO", nil)
		}
		if rep.AsumeCosto == domain.AsumeCostoUsuario && rep.Cuotas <= 0 {
			return nil, apperrors.NewValidationError("cuotas required when USUARIO bears the cost", nil)
		}
	} else if input.Reposicion != nil {
		return nil, apperrors.NewValidationError("reposicion details only valid for Reposición", nil)
	}

	ticket := &domain.SolicitudTelefonia{
		ID:              uuid.NewString(),
		DNI:             strings.TrimSpace(input.DNI),
		Nombre:          strings.TrimSpace(input.Nombre),
		Area:            strings.TrimSpace(input.Area),
		Cargo:           strings.TrimSpace(input.Cargo),
		LineaReferencia: strings.TrimSpace(input.LineaReferencia),
		Tipo:            input.Tipo,
		Servicio:        input.Servicio,
		Plan:            input.Plan,
		Reposicion:      input.Reposicion,
		Estado:          domain.EntryState(input.Tipo, input.Servicio),
		CreatedBy:       actor.ID,
		CreatedByEmail:  actor.Email,
		CreatedByName:   actor.Name,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTelephonyCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TelephonyCreatedPayload{
			Tipo:     ticket.Tipo,
			Servicio: ticket.Servicio,
			Estado:   ticket.Estado,
		},
	})
	return ticket, nil
}

// Get loads one ticket.
func (s *TelephonyService) Get(ctx context.Context, id string) (*domain.SolicitudTelefonia, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("solicitud", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// List returns all tickets ordered by creation ascending.
func (s *TelephonyService) List(ctx context.Context) ([]domain.SolicitudTelefonia, error) {
	return s.tickets.List(ctx)
}

// DecideGerencia records the first-tier approval decision.
func (s *TelephonyService) DecideGerencia(ctx context.Context, actor Identity, id string, approved bool) (*domain.SolicitudTelefonia, error) {
	if actor.Role != domain.RoleGerencia {
		return nil, apperrors.NewForbidden("gerencia role required")
	}
	unlock := s.locks.acquire(id)
	defer unlock()

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Estado != domain.EstadoPendienteGerencia {
		return nil, apperrors.NewInvalidTransition("gerencia decision only valid from Pendiente Gerencia", map[string]any{"estado": ticket.Estado})
	}

	old := ticket.Estado
	now := s.now()
	flag := approved
	ticket.AprobacionGerencia = &flag
	ticket.FechaAprobacionGerencia = &now
	if approved {
		ticket.Estado = domain.EstadoPendienteAdmin
		ticket.AprobacionGerenciaNombre = &actor.Name
	} else {
		ticket.Estado = domain.EstadoRechazada
		ticket.AprobacionGerenciaNombre = nil
	}

	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishDecision(ctx, actor, ticket, "gerencia", approved, old)
	return ticket, nil
}

// DecideAdmin records the second-tier approval decision. Revisión Admin is
// the alternate entry and is treated identically to Pendiente Admin.
func (s *TelephonyService) DecideAdmin(ctx context.Context, actor Identity, id string, approved bool) (*domain.SolicitudTelefonia, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	unlock := s.locks.acquire(id)
	defer unlock()

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Estado != domain.EstadoPendienteAdmin && ticket.Estado != domain.EstadoRevisionAdmin {
		return nil, apperrors.NewInvalidTransition("admin decision only valid from Pendiente Admin or Revisión Admin", map[string]any{"estado": ticket.Estado})
	}

	old := ticket.Estado
	now := s.now()
	flag := approved
	ticket.AprobacionAdmin = &flag
	ticket.FechaAprobacionAdmin = &now
	if approved {
		ticket.Estado = domain.EstadoProgramarEntrega
		ticket.AprobacionAdminNombre = &actor.Name
	} else {
		ticket.Estado = domain.EstadoRechazada
		ticket.AprobacionAdminNombre = nil
	}

	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishDecision(ctx, actor, ticket, "admin", approved, old)
	return ticket, nil
}

// RegisterDelivery fulfills the ticket. The ticket update, the device status
// change and the assignment record commit in one transaction.
func (s *TelephonyService) RegisterDelivery(ctx context.Context, actor Identity, id, equipoID, firma string) (*domain.SolicitudTelefonia, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if strings.TrimSpace(firma) == "" {
		return nil, apperrors.NewValidationError("firma required", nil)
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Estado != domain.EstadoProgramarEntrega {
		return nil, apperrors.NewInvalidTransition("delivery only valid from Programar Entrega", map[string]any{"estado": ticket.Estado})
	}
	if equipoID == "" {
		if ticket.EquipoAsignadoID == nil {
			return nil, apperrors.NewValidationError("equipo_id required: no device previously assigned", nil)
		}
		equipoID = *ticket.EquipoAsignadoID
	}
	if _, err := s.devices.GetEquipo(ctx, equipoID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("equipo", map[string]any{"id": equipoID})
		}
		return nil, err
	}

	now := s.now()
	ticket.Estado = domain.EstadoEntregado
	ticket.FechaEntrega = &now
	ticket.RecibidoPor = &firma
	ticket.EquipoAsignadoID = &equipoID

	asg := &domain.Asignacion{
		SolicitudID: ticket.ID,
		EquipoID:    equipoID,
		DNI:         ticket.DNI,
		Nombre:      ticket.Nombre,
		Area:        ticket.Area,
		Entregado:   now,
	}
	if err := s.tickets.Deliver(ctx, ticket, asg); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("ticket modified concurrently", nil)
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTelephonyDelivered,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TelephonyDeliveredPayload{
			EquipoID:    equipoID,
			RecibidoPor: firma,
		},
	})
	return ticket, nil
}

// UpdateAsignacion rewrites the final end-user of a delivered device,
// independent of the ticket lifecycle.
func (s *TelephonyService) UpdateAsignacion(ctx context.Context, actor Identity, asgID, dni, nombre, area string) (*domain.Asignacion, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if strings.TrimSpace(dni) == "" || strings.TrimSpace(nombre) == "" {
		return nil, apperrors.NewValidationError("dni and nombre required", nil)
	}
	asg, err := s.devices.UpdateAsignacionUsuario(ctx, asgID, dni, nombre, area)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("asignacion", map[string]any{"id": asgID})
		}
		return nil, err
	}
	return asg, nil
}

// ListAsignaciones returns all device assignment records.
func (s *TelephonyService) ListAsignaciones(ctx context.Context) ([]domain.Asignacion, error) {
	return s.devices.ListAsignaciones(ctx)
}

// RegisterEquipo adds a device or chip to the inventory as available stock.
func (s *TelephonyService) RegisterEquipo(ctx context.Context, actor Identity, descripcion, serie string) (*domain.Equipo, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if strings.TrimSpace(descripcion) == "" {
		return nil, apperrors.NewValidationError("descripcion required", nil)
	}
	equipo := &domain.Equipo{
		ID:          uuid.NewString(),
		Descripcion: descripcion,
		Serie:       serie,
		Estado:      domain.EquipoDisponible,
	}
	if err := s.devices.CreateEquipo(ctx, equipo); err != nil {
		return nil, err
	}
	return equipo, nil
}

// ListEquipos returns the device inventory.
func (s *TelephonyService) ListEquipos(ctx context.Context) ([]domain.Equipo, error) {
	return s.devices.ListEquipos(ctx)
}

func (s *TelephonyService) update(ctx context.Context, ticket *domain.SolicitudTelefonia) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("ticket modified concurrently", nil)
		}
		return err
	}
	return nil
}

func (s *TelephonyService) publishDecision(ctx context.Context, actor Identity, ticket *domain.SolicitudTelefonia, tier string, approved bool, old domain.EstadoTelefonia) {
	s.publish(ctx, events.Event{
		Type:     events.EventTelephonyDecided,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TelephonyDecidedPayload{
			Tier:      tier,
			Aprobada:  approved,
			OldEstado: old,
			NewEstado: ticket.Estado,
		},
	})
}

func (s *TelephonyService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor Identity) events.Actor {
	return events.Actor{
		UserID: actor.ID,
		Name:   actor.Name,
		Role:   actor.Role,
	}
}
