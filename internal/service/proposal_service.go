package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/solicitudes-service/internal/cache"
	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/events"
	"github.com/spec-kit/solicitudes-service/internal/repository"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// ProposalService manages flight proposals for air-travel tickets and the
// admin selection that materializes the purchase authorization.
type ProposalService struct {
	proposals  repository.ProposalRepository
	tickets    repository.TravelRepository
	cache      *cache.TravelCache
	dispatcher events.Dispatcher
	locks      *ticketLocks
	now        func() time.Time
}

// ProposalDependencies bundles collaborators.
type ProposalDependencies struct {
	ProposalRepo repository.ProposalRepository
	TicketRepo   repository.TravelRepository
	Cache        *cache.TravelCache
	Dispatcher   events.Dispatcher
}

// TramoInput is one leg of a proposal being created.
type TramoInput struct {
	Origen    string
	Destino   string
	Salida    time.Time
	Llegada   time.Time
	Aerolinea string
	NroVuelo  string
	Tarifa    string
}

// ProposalCreateInput describes a new candidate itinerary.
type ProposalCreateInput struct {
	Codigo     string
	Proveedor  string
	CostoTotal float64
	Moneda     string
	Sentido    domain.Sentido
	Tramos     []TramoInput
}

// NewProposalService constructs the service.
func NewProposalService(deps ProposalDependencies) *ProposalService {
	return &ProposalService{
		proposals:  deps.ProposalRepo,
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		locks:      newTicketLocks(),
		now:        time.Now,
	}
}

// Create numbers and persists a proposal. Proposals are immutable;
// corrections mean a new number, never an edit.
func (s *ProposalService) Create(ctx context.Context, actor Identity, input ProposalCreateInput) (*domain.Propuesta, error) {
	if actor.Role != domain.RoleProveedor {
		return nil, apperrors.NewForbidden("proveedor role required")
	}
	if strings.TrimSpace(input.Proveedor) == "" {
		return nil, apperrors.NewValidationError("proveedor required", nil)
	}
	if input.CostoTotal <= 0 {
		return nil, apperrors.NewValidationError("costo_total must be positive", nil)
	}
	if strings.TrimSpace(input.Moneda) == "" {
		return nil, apperrors.NewValidationError("moneda required", nil)
	}
	switch input.Sentido {
	case domain.SentidoIda, domain.SentidoVuelta, domain.SentidoAmbos:
	default:
		return nil, apperrors.NewValidationError("sentido must be IDA, VUELTA or AMBOS", nil)
	}
	if len(input.Tramos) == 0 {
		return nil, apperrors.NewValidationError("at least one tramo required", nil)
	}
	for i, t := range input.Tramos {
		if strings.TrimSpace(t.Origen) == "" || strings.TrimSpace(t.Destino) == "" {
			return nil, apperrors.NewValidationError("tramo origen and destino required", map[string]any{"tramo": i + 1})
		}
		if t.Llegada.Before(t.Salida) {
			return nil, apperrors.NewValidationError("tramo llegada precedes salida", map[string]any{"tramo": i + 1})
		}
	}

	unlock := s.locks.acquire(input.Codigo)
	defer unlock()

	ticket, err := s.loadTicket(ctx, input.Codigo)
	if err != nil {
		return nil, err
	}
	if !ticket.Aereo() {
		return nil, apperrors.NewInvalidTransition("proposals only apply to air tickets", nil)
	}
	if ticket.Estado == domain.EstadoCerrado {
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	}
	if ticket.AdminSelectionDone() {
		return nil, apperrors.NewInvalidTransition("admin already selected proposals", nil)
	}

	proposal := &domain.Propuesta{
		Codigo:     input.Codigo,
		Proveedor:  strings.TrimSpace(input.Proveedor),
		CostoTotal: input.CostoTotal,
		Moneda:     strings.TrimSpace(input.Moneda),
		Sentido:    input.Sentido,
	}
	for _, t := range input.Tramos {
		proposal.Tramos = append(proposal.Tramos, domain.Tramo{
			Origen:    strings.TrimSpace(t.Origen),
			Destino:   strings.TrimSpace(t.Destino),
			Salida:    t.Salida,
			Llegada:   t.Llegada,
			Aerolinea: strings.TrimSpace(t.Aerolinea),
			NroVuelo:  strings.TrimSpace(t.NroVuelo),
			Tarifa:    strings.TrimSpace(t.Tarifa),
		})
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, err
	}

	// The first proposal moves the ticket out of Pendiente propuesta.
	if ticket.Estado == domain.EstadoPendientePropuesta {
		old := ticket.Estado
		ticket.Estado = domain.EstadoPropuestaRealizada
		if err := s.updateTicket(ctx, ticket); err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type:     events.EventTravelStateChanged,
			TicketID: ticket.Codigo,
			Actor:    eventActor(actor),
			Payload: events.TravelStateChangedPayload{
				OldEstado: old,
				NewEstado: ticket.Estado,
				Comment:   "propuesta registrada",
			},
		})
	}

	s.publish(ctx, events.Event{
		Type:     events.EventProposalCreated,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload: events.ProposalCreatedPayload{
			Nro:     proposal.Nro,
			Sentido: proposal.Sentido,
			Costo:   proposal.CostoTotal,
			Moneda:  proposal.Moneda,
			Tramos:  len(proposal.Tramos),
		},
	})
	return proposal, nil
}

// ListByTicket returns the ticket's proposals ordered by number, segments by
// sequence.
func (s *ProposalService) ListByTicket(ctx context.Context, codigo string) ([]domain.Propuesta, error) {
	return s.proposals.ListByCodigo(ctx, codigo)
}

// SelectAdmin records the authoritative proposal choice: one outbound and one
// return proposal, or a single AMBOS proposal covering both directions. It
// aggregates the cost, derives the ticket schedule and materializes the
// purchase pass in a single ticket write.
func (s *ProposalService) SelectAdmin(ctx context.Context, actor Identity, codigo string, idaNro, vueltaNro *int) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return s.selectProposals(ctx, actor, codigo, idaNro, vueltaNro, false)
}

// SelectGerencia flags a Gerencia-side choice for history. Advisory only: it
// never changes state, cost or the purchase pass.
func (s *ProposalService) SelectGerencia(ctx context.Context, actor Identity, codigo string, idaNro, vueltaNro *int) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleGerencia {
		return nil, apperrors.NewForbidden("gerencia role required")
	}
	return s.selectProposals(ctx, actor, codigo, idaNro, vueltaNro, true)
}

func (s *ProposalService) selectProposals(ctx context.Context, actor Identity, codigo string, idaNro, vueltaNro *int, advisory bool) (*domain.SolicitudViaje, error) {
	if idaNro == nil && vueltaNro == nil {
		return nil, apperrors.NewValidationError("at least one proposal required", nil)
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadTicket(ctx, codigo)
	if err != nil {
		return nil, err
	}
	if !ticket.Aereo() {
		return nil, apperrors.NewInvalidTransition("proposals only apply to air tickets", nil)
	}
	if ticket.Estado == domain.EstadoCerrado {
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	}
	if !advisory && ticket.AdminSelectionDone() {
		return nil, apperrors.NewConflict("admin selection already recorded", map[string]any{
			"ida":    ticket.PropuestaIdaAdmin,
			"vuelta": ticket.PropuestaVueltaAdmin,
		})
	}

	ida, vuelta, err := s.resolveSelection(ctx, codigo, idaNro, vueltaNro)
	if err != nil {
		return nil, err
	}

	if advisory {
		ticket.PropuestaIdaGerencia = idaNro
		ticket.PropuestaVueltaGerencia = vueltaNro
		if err := s.updateTicket(ctx, ticket); err != nil {
			return nil, err
		}
		s.publishSelection(ctx, actor, ticket, idaNro, vueltaNro, cost(ida)+cost(vuelta), true)
		return ticket, nil
	}

	total := cost(ida) + cost(vuelta)
	now := s.now()
	aprobado := true

	ticket.PropuestaIdaAdmin = idaNro
	ticket.PropuestaVueltaAdmin = vueltaNro
	ticket.Costo = &total
	ticket.CostoVenceEn = &now // frozen immediately by the approval below
	ticket.CostoAprobado = &aprobado
	ticket.PaseCompra = true
	if ida != nil {
		ticket.Proveedor = &ida.Proveedor
		if first := ida.PrimerTramo(); first != nil {
			salida := first.Salida
			ticket.Salida = &salida
		}
		if ida.Sentido == domain.SentidoAmbos {
			if last := ida.UltimoTramo(); last != nil {
				llegada := last.Llegada
				ticket.Retorno = &llegada
			}
		}
	} else if vuelta != nil {
		ticket.Proveedor = &vuelta.Proveedor
	}
	if vuelta != nil {
		if last := vuelta.UltimoTramo(); last != nil {
			llegada := last.Llegada
			ticket.Retorno = &llegada
		}
	}

	old := ticket.Estado
	ticket.Estado = domain.EstadoGerenciaAprobado

	// Selection stamps and ticket advancement are one row write: either the
	// whole selection commits or none of it does.
	if err := s.updateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishSelection(ctx, actor, ticket, idaNro, vueltaNro, total, false)
	s.publish(ctx, events.Event{
		Type:     events.EventTravelStateChanged,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload: events.TravelStateChangedPayload{
			OldEstado: old,
			NewEstado: ticket.Estado,
			Comment:   "propuesta seleccionada",
		},
	})
	return ticket, nil
}

// resolveSelection loads and validates the chosen proposals. An AMBOS
// proposal must come alone; otherwise directions must match the slots.
func (s *ProposalService) resolveSelection(ctx context.Context, codigo string, idaNro, vueltaNro *int) (ida, vuelta *domain.Propuesta, err error) {
	if idaNro != nil {
		ida, err = s.loadProposal(ctx, codigo, *idaNro)
		if err != nil {
			return nil, nil, err
		}
	}
	if vueltaNro != nil {
		vuelta, err = s.loadProposal(ctx, codigo, *vueltaNro)
		if err != nil {
			return nil, nil, err
		}
	}

	if ida != nil && ida.Sentido == domain.SentidoAmbos {
		if vuelta != nil {
			return nil, nil, apperrors.NewValidationError("an AMBOS proposal covers both directions", nil)
		}
		return ida, nil, nil
	}
	if ida != nil && ida.Sentido != domain.SentidoIda {
		return nil, nil, apperrors.NewValidationError("outbound slot requires an IDA proposal", map[string]any{"nro": ida.Nro, "sentido": ida.Sentido})
	}
	if vuelta != nil && vuelta.Sentido != domain.SentidoVuelta {
		return nil, nil, apperrors.NewValidationError("return slot requires a VUELTA proposal", map[string]any{"nro": vuelta.Nro, "sentido": vuelta.Sentido})
	}
	return ida, vuelta, nil
}

func (s *ProposalService) loadProposal(ctx context.Context, codigo string, nro int) (*domain.Propuesta, error) {
	p, err := s.proposals.GetByNro(ctx, codigo, nro)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("propuesta", map[string]any{"codigo": codigo, "nro": nro})
		}
		return nil, err
	}
	return p, nil
}

func (s *ProposalService) loadTicket(ctx context.Context, codigo string) (*domain.SolicitudViaje, error) {
	ticket, err := s.tickets.GetByCodigo(ctx, codigo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("solicitud", map[string]any{"codigo": codigo})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *ProposalService) updateTicket(ctx context.Context, ticket *domain.SolicitudViaje) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("ticket modified concurrently", nil)
		}
		return err
	}
	s.cache.Invalidate(ctx, ticket.Codigo)
	return nil
}

func (s *ProposalService) publishSelection(ctx context.Context, actor Identity, ticket *domain.SolicitudViaje, ida, vuelta *int, total float64, advisory bool) {
	s.publish(ctx, events.Event{
		Type:     events.EventProposalSelected,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload: events.ProposalSelectedPayload{
			Ida:        ida,
			Vuelta:     vuelta,
			CostoTotal: total,
			Advisory:   advisory,
		},
	})
}

func (s *ProposalService) publish(ctx context.Context, event events.Event) {
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

func cost(p *domain.Propuesta) float64 {
	if p == nil {
		return 0
	}
	return p.CostoTotal
}
