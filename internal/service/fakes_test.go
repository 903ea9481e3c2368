package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/events"
	"github.com/spec-kit/solicitudes-service/internal/repository"
)

// In-memory repository fakes. Get returns a copy so a service mutation only
// lands in the store through Update, mirroring the Postgres round trip.

type fakeTravelRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.SolicitudViaje
	seq     int
}

func newFakeTravelRepo() *fakeTravelRepo {
	return &fakeTravelRepo{tickets: make(map[string]*domain.SolicitudViaje)}
}

func (r *fakeTravelRepo) Create(_ context.Context, s *domain.SolicitudViaje) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.Codigo = fmt.Sprintf("PYH%05d", r.seq)
	s.Creado = time.Now()
	s.Version = 1
	cp := *s
	r.tickets[s.Codigo] = &cp
	return nil
}

func (r *fakeTravelRepo) GetByCodigo(_ context.Context, codigo string) (*domain.SolicitudViaje, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[codigo]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTravelRepo) List(_ context.Context) ([]domain.SolicitudViaje, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SolicitudViaje
	for i := 1; i <= r.seq; i++ {
		if t, ok := r.tickets[fmt.Sprintf("PYH%05d", i)]; ok {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *fakeTravelRepo) Update(_ context.Context, s *domain.SolicitudViaje) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[s.Codigo]
	if !ok || stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	cp := *s
	cp.Version++
	r.tickets[s.Codigo] = &cp
	s.Version++
	return nil
}

type fakeTelephonyRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.SolicitudTelefonia
	order   []string
}

func newFakeTelephonyRepo() *fakeTelephonyRepo {
	return &fakeTelephonyRepo{tickets: make(map[string]*domain.SolicitudTelefonia)}
}

func (r *fakeTelephonyRepo) Create(_ context.Context, s *domain.SolicitudTelefonia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Creado = time.Now()
	s.Version = 1
	cp := *s
	r.tickets[s.ID] = &cp
	r.order = append(r.order, s.ID)
	return nil
}

func (r *fakeTelephonyRepo) GetByID(_ context.Context, id string) (*domain.SolicitudTelefonia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTelephonyRepo) List(_ context.Context) ([]domain.SolicitudTelefonia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SolicitudTelefonia
	for _, id := range r.order {
		result = append(result, *r.tickets[id])
	}
	return result, nil
}

func (r *fakeTelephonyRepo) Update(_ context.Context, s *domain.SolicitudTelefonia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(s)
}

func (r *fakeTelephonyRepo) updateLocked(s *domain.SolicitudTelefonia) error {
	stored, ok := r.tickets[s.ID]
	if !ok || stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	cp := *s
	cp.Version++
	r.tickets[s.ID] = &cp
	s.Version++
	return nil
}

type fakeDeviceRepo struct {
	mu           sync.Mutex
	equipos      map[string]*domain.Equipo
	asignaciones map[string]*domain.Asignacion
	asgSeq       int
	asgOrder     []string
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{
		equipos:      make(map[string]*domain.Equipo),
		asignaciones: make(map[string]*domain.Asignacion),
	}
}

func (r *fakeDeviceRepo) CreateEquipo(_ context.Context, e *domain.Equipo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Creado = time.Now()
	cp := *e
	r.equipos[e.ID] = &cp
	return nil
}

func (r *fakeDeviceRepo) GetEquipo(_ context.Context, id string) (*domain.Equipo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.equipos[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *fakeDeviceRepo) ListEquipos(_ context.Context) ([]domain.Equipo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Equipo
	for _, e := range r.equipos {
		result = append(result, *e)
	}
	return result, nil
}

func (r *fakeDeviceRepo) GetAsignacion(_ context.Context, id string) (*domain.Asignacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.asignaciones[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeDeviceRepo) ListAsignaciones(_ context.Context) ([]domain.Asignacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Asignacion
	for _, id := range r.asgOrder {
		result = append(result, *r.asignaciones[id])
	}
	return result, nil
}

func (r *fakeDeviceRepo) UpdateAsignacionUsuario(_ context.Context, id, dni, nombre, area string) (*domain.Asignacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.asignaciones[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a.DNI, a.Nombre, a.Area = dni, nombre, area
	a.Actualizado = time.Now()
	cp := *a
	return &cp, nil
}

func (r *fakeDeviceRepo) insertAsignacionLocked(asg *domain.Asignacion) {
	r.asgSeq++
	asg.ID = fmt.Sprintf("asg-%d", r.asgSeq)
	asg.Actualizado = time.Now()
	cp := *asg
	r.asignaciones[asg.ID] = &cp
	r.asgOrder = append(r.asgOrder, asg.ID)
}

// fakeDeliverRepo combines the telephony and device stores so Deliver can
// mimic the transactional write.
type fakeDeliverRepo struct {
	*fakeTelephonyRepo
	devices *fakeDeviceRepo
}

func (r *fakeDeliverRepo) Deliver(_ context.Context, s *domain.SolicitudTelefonia, asg *domain.Asignacion) error {
	r.fakeTelephonyRepo.mu.Lock()
	defer r.fakeTelephonyRepo.mu.Unlock()
	if err := r.updateLocked(s); err != nil {
		return err
	}
	r.devices.mu.Lock()
	defer r.devices.mu.Unlock()
	if e, ok := r.devices.equipos[asg.EquipoID]; ok {
		e.Estado = domain.EquipoAsignado
	}
	r.devices.insertAsignacionLocked(asg)
	return nil
}

func (r *fakeTelephonyRepo) Deliver(_ context.Context, _ *domain.SolicitudTelefonia, _ *domain.Asignacion) error {
	panic("use fakeDeliverRepo for delivery tests")
}

type fakeProposalRepo struct {
	mu        sync.Mutex
	proposals map[string][]domain.Propuesta
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[string][]domain.Propuesta)}
}

func (r *fakeProposalRepo) Create(_ context.Context, p *domain.Propuesta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Nro = len(r.proposals[p.Codigo]) + 1
	for i := range p.Tramos {
		p.Tramos[i].Codigo = p.Codigo
		p.Tramos[i].Nro = p.Nro
		p.Tramos[i].Secuencia = i + 1
		p.Tramos[i].Creado = time.Now()
	}
	cp := *p
	cp.Tramos = append([]domain.Tramo(nil), p.Tramos...)
	r.proposals[p.Codigo] = append(r.proposals[p.Codigo], cp)
	return nil
}

func (r *fakeProposalRepo) ListByCodigo(_ context.Context, codigo string) ([]domain.Propuesta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Propuesta(nil), r.proposals[codigo]...), nil
}

func (r *fakeProposalRepo) GetByNro(_ context.Context, codigo string, nro int) (*domain.Propuesta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proposals[codigo] {
		if p.Nro == nro {
			cp := p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// recordingDispatcher captures published event types for assertions.
type recordingDispatcher struct {
	mu    sync.Mutex
	types []events.EventType
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.types = append(d.types, event.Type)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) seen(t events.EventType) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, got := range d.types {
		if got == t {
			return true
		}
	}
	return false
}
