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
	"github.com/spec-kit/solicitudes-service/internal/observability"
	"github.com/spec-kit/solicitudes-service/internal/repository"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// TravelService is the workflow engine for pasaje/hospedaje requests.
type TravelService struct {
	tickets    repository.TravelRepository
	cache      *cache.TravelCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	locks      *ticketLocks

	vigenciaMin int
	vigenciaMax int
	now         func() time.Time
}

// TravelDependencies bundles collaborators for the engine.
type TravelDependencies struct {
	TicketRepo repository.TravelRepository
	Cache      *cache.TravelCache
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	// Quote validity clamp bounds, in hours.
	VigenciaMinHoras int
	VigenciaMaxHoras int
}

// TravelCreateInput describes a new travel/lodging request.
type TravelCreateInput struct {
	DNI          string
	Nombre       string
	Gerencia     string
	Tipo         domain.TipoViaje
	Subtipo      domain.SubtipoViaje
	Salida       *time.Time
	Retorno      *time.Time
	Lugar        string
	Inicio       *time.Time
	Fin          *time.Time
	Traslado     bool
	Alimentacion bool
	Motivo       string
}

// NewTravelService constructs the engine.
func NewTravelService(deps TravelDependencies) *TravelService {
	min, max := deps.VigenciaMinHoras, deps.VigenciaMaxHoras
	if min <= 0 {
		min = 1
	}
	if max <= 0 {
		max = 720
	}
	return &TravelService{
		tickets:     deps.TicketRepo,
		cache:       deps.Cache,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		locks:       newTicketLocks(),
		vigenciaMin: min,
		vigenciaMax: max,
		now:         time.Now,
	}
}

// Crear registers a request under the next sequential código.
func (s *TravelService) Crear(ctx context.Context, actor Identity, input TravelCreateInput) (*domain.SolicitudViaje, error) {
	if strings.TrimSpace(input.DNI) == "" || strings.TrimSpace(input.Nombre) == "" {
		return nil, apperrors.NewValidationError("dni and nombre required", nil)
	}
	switch input.Tipo {
	case domain.TipoPasaje:
		if input.Subtipo != domain.SubtipoAereo && input.Subtipo != domain.SubtipoTerrestre {
			return nil, apperrors.NewValidationError("subtipo must be Aéreo or Terrestre", nil)
		}
		if input.Salida == nil || input.Retorno == nil {
			return nil, apperrors.NewValidationError("salida and retorno required for Pasaje", nil)
		}
		if input.Retorno.Before(*input.Salida) {
			return nil, apperrors.NewValidationError("retorno must not precede salida", nil)
		}
	case domain.TipoHospedaje:
		if strings.TrimSpace(input.Lugar) == "" || input.Inicio == nil || input.Fin == nil {
			return nil, apperrors.NewValidationError("lugar, inicio and fin required for Hospedaje", nil)
		}
		if input.Fin.Before(*input.Inicio) {
			return nil, apperrors.NewValidationError("fin must not precede inicio", nil)
		}
	default:
		return nil, apperrors.NewValidationError("tipo must be Pasaje or Hospedaje", nil)
	}

	ticket := &domain.SolicitudViaje{
		DNI:            strings.TrimSpace(input.DNI),
		Nombre:         strings.TrimSpace(input.Nombre),
		Gerencia:       strings.TrimSpace(input.Gerencia),
		Tipo:           input.Tipo,
		Subtipo:        input.Subtipo,
		Salida:         input.Salida,
		Retorno:        input.Retorno,
		Lugar:          strings.TrimSpace(input.Lugar),
		Inicio:         input.Inicio,
		Fin:            input.Fin,
		Traslado:       input.Traslado,
		Alimentacion:   input.Alimentacion,
		Motivo:         strings.TrimSpace(input.Motivo),
		Estado:         domain.EstadoPendiente,
		PaseCompra:     false,
		CreatedBy:      actor.ID,
		CreatedByEmail: actor.Email,
		CreatedByName:  actor.Name,
	}
	if ticket.Tipo == domain.TipoHospedaje {
		ticket.Subtipo = ""
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTravelCreated,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload: events.TravelCreatedPayload{
			Codigo:  ticket.Codigo,
			Tipo:    ticket.Tipo,
			Subtipo: ticket.Subtipo,
		},
	})
	return ticket, nil
}

// Get loads one ticket, expiring a stale quote first. Cache hits still go
// through the sweep so an expired quote is never served.
func (s *TravelService) Get(ctx context.Context, codigo string) (*domain.SolicitudViaje, error) {
	if cached := s.cache.Get(ctx, codigo); cached != nil {
		if !s.sweepTicket(cached, s.now()) {
			return cached, nil
		}
		// Quote went stale while cached; fall through to the locked path so
		// the downgrade is persisted exactly once.
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()
	return s.loadSwept(ctx, codigo, true)
}

// List returns all tickets ordered by creation ascending, with expired quotes
// swept and persisted.
func (s *TravelService) List(ctx context.Context) ([]domain.SolicitudViaje, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range tickets {
		if s.sweepTicket(&tickets[i], now) {
			s.persistSweep(ctx, &tickets[i])
		}
	}
	return tickets, nil
}

// SetProveedor assigns or reassigns the provider. A Pendiente ticket advances
// to En proceso (air tickets open the proposal path instead); once progressed
// the state never regresses or skips.
func (s *TravelService) SetProveedor(ctx context.Context, actor Identity, codigo, nombre string) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleGestion && actor.Role != domain.RoleGerencia {
		return nil, apperrors.NewForbidden("gestion or gerencia role required")
	}
	if strings.TrimSpace(nombre) == "" {
		return nil, apperrors.NewValidationError("proveedor required", nil)
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	if ticket.Estado == domain.EstadoCerrado {
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	}
	if ticket.Factura != nil {
		return nil, apperrors.NewInvalidTransition("ticket already invoiced", nil)
	}

	old := ticket.Estado
	proveedor := strings.TrimSpace(nombre)
	ticket.Proveedor = &proveedor
	if ticket.Estado == domain.EstadoPendiente {
		if ticket.Aereo() {
			ticket.Estado = domain.EstadoPendientePropuesta
		} else {
			ticket.Estado = domain.EstadoEnProceso
		}
	}

	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, old, "proveedor asignado")
	return ticket, nil
}

// SetCostoConVigencia quotes a cost with a validity window. Re-quoting wipes
// any stale approval, purchase pass and invoice: most recent quote wins.
func (s *TravelService) SetCostoConVigencia(ctx context.Context, actor Identity, codigo string, monto float64, horasVigencia int) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleProveedor {
		return nil, apperrors.NewForbidden("proveedor role required")
	}
	if monto <= 0 {
		return nil, apperrors.NewValidationError("monto must be positive", map[string]any{"monto": monto})
	}
	if horasVigencia < s.vigenciaMin {
		horasVigencia = s.vigenciaMin
	}
	if horasVigencia > s.vigenciaMax {
		horasVigencia = s.vigenciaMax
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case ticket.Estado == domain.EstadoCerrado:
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	case ticket.Factura != nil:
		return nil, apperrors.NewInvalidTransition("ticket already invoiced", nil)
	case ticket.CostoFrozen():
		return nil, apperrors.NewInvalidTransition("cost already approved", nil)
	case ticket.HasCostoVigente(now):
		return nil, apperrors.NewInvalidTransition("a valid quote already exists", map[string]any{"vence_en": ticket.CostoVenceEn})
	}

	old := ticket.Estado
	vence := now.Add(time.Duration(horasVigencia) * time.Hour)
	ticket.Costo = &monto
	ticket.CostoVenceEn = &vence
	ticket.CostoAprobado = nil
	ticket.PaseCompra = false
	ticket.Factura = nil
	if ticket.Estado == domain.EstadoRechazado {
		ticket.Estado = domain.EstadoEnProceso
	}

	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCostQuoted,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload:  events.CostQuotedPayload{Monto: monto, VenceEn: vence},
	})
	if old != ticket.Estado {
		s.publishState(ctx, actor, ticket, old, "cotización registrada")
	}
	return ticket, nil
}

// AprobarCosto records the cost approval decision. Approval locks the quote
// in; rejection drops the ticket to Rechazado until a fresh quote arrives.
func (s *TravelService) AprobarCosto(ctx context.Context, actor Identity, codigo string, aprueba bool) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleGestion && actor.Role != domain.RoleGerencia {
		return nil, apperrors.NewForbidden("gestion or gerencia role required")
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	switch {
	case ticket.Estado == domain.EstadoCerrado:
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	case ticket.Factura != nil:
		return nil, apperrors.NewInvalidTransition("ticket already invoiced", nil)
	case ticket.Costo == nil:
		return nil, apperrors.NewInvalidTransition("no cost to approve", nil)
	}

	old := ticket.Estado
	flag := aprueba
	ticket.CostoAprobado = &flag
	if aprueba {
		ticket.Estado = domain.EstadoCostoAprobado
		ticket.PaseCompra = true
	} else {
		ticket.Estado = domain.EstadoRechazado
		ticket.PaseCompra = false
	}

	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, old, "decisión de costo")
	return ticket, nil
}

// GenerarPase advances an approved ticket once its purchase pass exists.
func (s *TravelService) GenerarPase(ctx context.Context, actor Identity, codigo string) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleGestion && actor.Role != domain.RoleGerencia {
		return nil, apperrors.NewForbidden("gestion or gerencia role required")
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	if ticket.Estado != domain.EstadoCostoAprobado || !ticket.PaseCompra {
		return nil, apperrors.NewInvalidTransition("pase only valid from Costo aprobado with pase de compra", map[string]any{"estado": ticket.Estado})
	}

	old := ticket.Estado
	ticket.Estado = domain.EstadoConPase
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, old, "pase generado")
	return ticket, nil
}

// SubirFactura attaches the provider invoice.
func (s *TravelService) SubirFactura(ctx context.Context, actor Identity, codigo, ref string) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleProveedor {
		return nil, apperrors.NewForbidden("proveedor role required")
	}
	if strings.TrimSpace(ref) == "" {
		return nil, apperrors.NewValidationError("factura reference required", nil)
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	if ticket.Estado == domain.EstadoCerrado {
		return nil, apperrors.NewInvalidTransition("ticket is closed", nil)
	}
	if !ticket.PaseCompra {
		return nil, apperrors.NewInvalidTransition("no pase de compra", nil)
	}

	old := ticket.Estado
	factura := strings.TrimSpace(ref)
	ticket.Factura = &factura
	ticket.Estado = domain.EstadoFacturado
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, old, "factura registrada")
	return ticket, nil
}

// Cerrar closes an invoiced ticket; closed tickets are immutable.
func (s *TravelService) Cerrar(ctx context.Context, actor Identity, codigo string) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleGestion {
		return nil, apperrors.NewForbidden("gestion role required")
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	if ticket.Estado == domain.EstadoCerrado {
		return nil, apperrors.NewInvalidTransition("ticket already closed", nil)
	}
	if ticket.Factura == nil {
		return nil, apperrors.NewInvalidTransition("cannot close without factura", nil)
	}

	old := ticket.Estado
	now := s.now()
	ticket.Estado = domain.EstadoCerrado
	ticket.CerradoEn = &now
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, old, "cerrado")
	return ticket, nil
}

// IniciarCompra marks the purchase as underway on the air path.
func (s *TravelService) IniciarCompra(ctx context.Context, actor Identity, codigo string) (*domain.SolicitudViaje, error) {
	return s.advanceCompra(ctx, actor, codigo, domain.EstadoGerenciaAprobado, domain.EstadoPendienteCompra, "compra iniciada")
}

// ConfirmarCompra records the completed purchase on the air path.
func (s *TravelService) ConfirmarCompra(ctx context.Context, actor Identity, codigo string) (*domain.SolicitudViaje, error) {
	return s.advanceCompra(ctx, actor, codigo, domain.EstadoPendienteCompra, domain.EstadoCompraRealizada, "compra realizada")
}

func (s *TravelService) advanceCompra(ctx context.Context, actor Identity, codigo string, from, to domain.EstadoViaje, comment string) (*domain.SolicitudViaje, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}

	unlock := s.locks.acquire(codigo)
	defer unlock()

	ticket, err := s.loadSwept(ctx, codigo, false)
	if err != nil {
		return nil, err
	}
	if !ticket.Aereo() {
		return nil, apperrors.NewInvalidTransition("purchase progression only applies to air tickets", nil)
	}
	if ticket.Estado != from {
		return nil, apperrors.NewInvalidTransition("invalid purchase progression", map[string]any{"estado": ticket.Estado, "expected": from})
	}

	ticket.Estado = to
	if err := s.update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishState(ctx, actor, ticket, from, comment)
	return ticket, nil
}

// SweepExpired voids every expired, unapproved quote and reports how many
// tickets it touched. The background worker calls this on a timer.
func (s *TravelService) SweepExpired(ctx context.Context) (int, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	expired := 0
	for i := range tickets {
		if s.sweepTicket(&tickets[i], now) {
			s.persistSweep(ctx, &tickets[i])
			expired++
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSweep(expired)
	}
	return expired, nil
}

// sweepTicket applies the expiry rule in place and reports whether the ticket
// changed. Pure in time: now is a parameter. An approved cost is frozen.
func (s *TravelService) sweepTicket(t *domain.SolicitudViaje, now time.Time) bool {
	if t.Costo == nil || t.CostoVenceEn == nil {
		return false
	}
	if !now.After(*t.CostoVenceEn) {
		return false
	}
	if t.Estado == domain.EstadoCerrado || t.Factura != nil || t.CostoFrozen() {
		return false
	}
	t.Costo = nil
	t.CostoVenceEn = nil
	if t.Estado == domain.EstadoCostoAprobado {
		t.Estado = domain.EstadoEnProceso
	}
	return true
}

// loadSwept fetches a fresh ticket, expires a stale quote and persists the
// downgrade before the caller acts on it. Caller holds the ticket lock.
func (s *TravelService) loadSwept(ctx context.Context, codigo string, cacheResult bool) (*domain.SolicitudViaje, error) {
	ticket, err := s.tickets.GetByCodigo(ctx, codigo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("solicitud", map[string]any{"codigo": codigo})
		}
		return nil, err
	}
	if s.sweepTicket(ticket, s.now()) {
		s.persistSweep(ctx, ticket)
	}
	if cacheResult {
		s.cache.Set(ctx, ticket)
	}
	return ticket, nil
}

// persistSweep writes an expiry downgrade back. A lost CAS means another
// writer already advanced the ticket; the sweep result is discarded there,
// never retried: the sweep only moves state toward the safer condition.
func (s *TravelService) persistSweep(ctx context.Context, t *domain.SolicitudViaje) {
	old := t.Estado
	if err := s.tickets.Update(ctx, t); err != nil {
		return
	}
	s.cache.Invalidate(ctx, t.Codigo)
	s.publish(ctx, events.Event{
		Type:     events.EventCostExpired,
		TicketID: t.Codigo,
		Payload: events.CostExpiredPayload{
			OldEstado: old,
			NewEstado: t.Estado,
		},
	})
}

func (s *TravelService) update(ctx context.Context, ticket *domain.SolicitudViaje) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("ticket modified concurrently", nil)
		}
		return err
	}
	s.cache.Invalidate(ctx, ticket.Codigo)
	return nil
}

func (s *TravelService) publishState(ctx context.Context, actor Identity, ticket *domain.SolicitudViaje, old domain.EstadoViaje, comment string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTravelStateChanged,
		TicketID: ticket.Codigo,
		Actor:    eventActor(actor),
		Payload: events.TravelStateChangedPayload{
			OldEstado: old,
			NewEstado: ticket.Estado,
			Comment:   comment,
		},
	})
}

func (s *TravelService) publish(ctx context.Context, event events.Event) {
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
