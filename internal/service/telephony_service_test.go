package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/events"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

func newTelephonyFixture(t *testing.T) (*TelephonyService, *fakeDeliverRepo, *fakeDeviceRepo, *recordingDispatcher) {
	t.Helper()
	devices := newFakeDeviceRepo()
	tickets := &fakeDeliverRepo{fakeTelephonyRepo: newFakeTelephonyRepo(), devices: devices}
	disp := &recordingDispatcher{}
	svc := NewTelephonyService(TelephonyDependencies{
		TicketRepo: tickets,
		DeviceRepo: devices,
		Dispatcher: disp,
	})
	return svc, tickets, devices, disp
}

func crearLineaNueva(t *testing.T, svc *TelephonyService, servicio string) *domain.SolicitudTelefonia {
	t.Helper()
	ticket, err := svc.Create(context.Background(), solicitante, TelephonyCreateInput{
		DNI:      "11223344",
		Nombre:   "Juan Quispe",
		Area:     "Logística",
		Tipo:     domain.TipoLineaNueva,
		Servicio: servicio,
		Plan:     "Plan 39.90",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func seedEquipo(t *testing.T, devices *fakeDeviceRepo) string {
	t.Helper()
	e := &domain.Equipo{ID: uuid.NewString(), Descripcion: "Samsung A54", Estado: domain.EquipoDisponible}
	if err := devices.CreateEquipo(context.Background(), e); err != nil {
		t.Fatalf("CreateEquipo: %v", err)
	}
	return e.ID
}

func TestEntryStateByTipoAndServicio(t *testing.T) {
	cases := []struct {
		name     string
		tipo     domain.TipoSolicitud
		servicio string
		want     domain.EstadoTelefonia
	}{
		{"linea nueva regular", domain.TipoLineaNueva, "Movistar", domain.EstadoPendienteGerencia},
		{"linea nueva solo chip", domain.TipoLineaNueva, domain.OperadorSoloChip, domain.EstadoRevisionAdmin},
		{"segundo uso", domain.TipoLineaSegundoUso, "Claro", domain.EstadoRevisionAdmin},
		{"renovacion", domain.TipoRenovacion, "Movistar", domain.EstadoRevisionAdmin},
		{"reposicion", domain.TipoReposicion, "Movistar", domain.EstadoRevisionAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.EntryState(tc.tipo, tc.servicio); got != tc.want {
				t.Fatalf("EntryState(%q, %q) = %q, want %q", tc.tipo, tc.servicio, got, tc.want)
			}
		})
	}
}

func TestTwoTierApprovalHappyPath(t *testing.T) {
	svc, _, devices, disp := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, "Movistar")
	if ticket.Estado != domain.EstadoPendienteGerencia {
		t.Fatalf("entry estado = %q", ticket.Estado)
	}

	got, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, true)
	if err != nil {
		t.Fatalf("DecideGerencia: %v", err)
	}
	if got.Estado != domain.EstadoPendienteAdmin {
		t.Fatalf("estado = %q, want Pendiente Admin", got.Estado)
	}
	if got.AprobacionGerenciaNombre == nil || *got.AprobacionGerenciaNombre != gerencia.Name {
		t.Fatalf("gerencia nombre = %v", got.AprobacionGerenciaNombre)
	}
	if got.FechaAprobacionGerencia == nil {
		t.Fatal("gerencia decision timestamp missing")
	}

	got, err = svc.DecideAdmin(context.Background(), admin, ticket.ID, true)
	if err != nil {
		t.Fatalf("DecideAdmin: %v", err)
	}
	if got.Estado != domain.EstadoProgramarEntrega {
		t.Fatalf("estado = %q, want Programar Entrega", got.Estado)
	}

	equipoID := seedEquipo(t, devices)
	got, err = svc.RegisterDelivery(context.Background(), admin, ticket.ID, equipoID, "J. Quispe")
	if err != nil {
		t.Fatalf("RegisterDelivery: %v", err)
	}
	if got.Estado != domain.EstadoEntregado {
		t.Fatalf("estado = %q, want Entregado", got.Estado)
	}
	if got.FechaEntrega == nil || got.RecibidoPor == nil || *got.RecibidoPor != "J. Quispe" {
		t.Fatalf("delivery stamps: fecha=%v recibido=%v", got.FechaEntrega, got.RecibidoPor)
	}

	// Delivery sealed the device and created the assignment atomically.
	equipo, _ := devices.GetEquipo(context.Background(), equipoID)
	if equipo.Estado != domain.EquipoAsignado {
		t.Fatalf("equipo estado = %q, want Asignado", equipo.Estado)
	}
	asgs, _ := devices.ListAsignaciones(context.Background())
	if len(asgs) != 1 || asgs[0].SolicitudID != ticket.ID || asgs[0].DNI != "11223344" {
		t.Fatalf("asignaciones = %+v", asgs)
	}

	if !disp.seen(events.EventTelephonyDelivered) {
		t.Fatal("telephony_delivered event not published")
	}

	// Entregado is terminal.
	if _, err := svc.DecideAdmin(context.Background(), admin, ticket.ID, true); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("decision on delivered err = %v", err)
	}
}

func TestRejectionIsTerminal(t *testing.T) {
	svc, _, _, _ := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, "Movistar")

	got, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, false)
	if err != nil {
		t.Fatalf("DecideGerencia: %v", err)
	}
	if got.Estado != domain.EstadoRechazada {
		t.Fatalf("estado = %q, want Rechazada", got.Estado)
	}
	if got.AprobacionGerenciaNombre != nil {
		t.Fatal("rejection must not record an approver name")
	}
	if got.FechaAprobacionGerencia == nil {
		t.Fatal("rejection must still record the decision timestamp")
	}

	for _, decide := range []func() error{
		func() error { _, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, true); return err },
		func() error { _, err := svc.DecideAdmin(context.Background(), admin, ticket.ID, true); return err },
		func() error {
			_, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, "x", "firma")
			return err
		},
	} {
		if err := decide(); !apperrors.IsCode(err, "INVALID_TRANSITION") {
			t.Fatalf("mutation on Rechazada err = %v, want INVALID_TRANSITION", err)
		}
	}
}

func TestAdminEntryBypassesGerencia(t *testing.T) {
	svc, _, _, _ := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, domain.OperadorSoloChip)
	if ticket.Estado != domain.EstadoRevisionAdmin {
		t.Fatalf("entry estado = %q, want Revisión Admin", ticket.Estado)
	}

	// Gerencia has no say on an admin-entry ticket.
	if _, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, true); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("gerencia on Revisión Admin err = %v", err)
	}

	got, err := svc.DecideAdmin(context.Background(), admin, ticket.ID, true)
	if err != nil {
		t.Fatalf("DecideAdmin: %v", err)
	}
	if got.Estado != domain.EstadoProgramarEntrega {
		t.Fatalf("estado = %q", got.Estado)
	}
	if got.AprobacionGerencia != nil {
		t.Fatal("bypassed tier recorded a decision")
	}
}

func TestReposicionValidation(t *testing.T) {
	svc, _, _, _ := newTelephonyFixture(t)

	base := TelephonyCreateInput{
		DNI:    "11223344",
		Nombre: "Juan Quispe",
		Tipo:   domain.TipoReposicion,
	}

	missing := base
	if _, err := svc.Create(context.Background(), solicitante, missing); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("missing reposicion err = %v", err)
	}

	badMotivo := base
	badMotivo.Reposicion = &domain.Reposicion{Motivo: "CAPRICHO", AsumeCosto: domain.AsumeCostoEmpresa}
	if _, err := svc.Create(context.Background(), solicitante, badMotivo); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("bad motivo err = %v", err)
	}

	noCuotas := base
	noCuotas.Reposicion = &domain.Reposicion{Motivo: domain.MotivoRobo, AsumeCosto: domain.AsumeCostoUsuario}
	if _, err := svc.Create(context.Background(), solicitante, noCuotas); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("usuario sin cuotas err = %v", err)
	}

	ok := base
	ok.Reposicion = &domain.Reposicion{Motivo: domain.MotivoRobo, AsumeCosto: domain.AsumeCostoUsuario, Cuotas: 6}
	ticket, err := svc.Create(context.Background(), solicitante, ok)
	if err != nil {
		t.Fatalf("valid reposicion: %v", err)
	}
	if ticket.Estado != domain.EstadoRevisionAdmin {
		t.Fatalf("reposicion entry = %q", ticket.Estado)
	}

	// Reposición details are exclusive to that tipo.
	stray := TelephonyCreateInput{
		DNI: "1", Nombre: "X", Tipo: domain.TipoLineaNueva,
		Reposicion: &domain.Reposicion{Motivo: domain.MotivoRobo, AsumeCosto: domain.AsumeCostoEmpresa},
	}
	if _, err := svc.Create(context.Background(), solicitante, stray); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("stray reposicion err = %v", err)
	}
}

func TestDeliveryRequirements(t *testing.T) {
	svc, _, devices, _ := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, "Movistar")
	if _, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, true); err != nil {
		t.Fatalf("DecideGerencia: %v", err)
	}
	if _, err := svc.DecideAdmin(context.Background(), admin, ticket.ID, true); err != nil {
		t.Fatalf("DecideAdmin: %v", err)
	}

	if _, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, "", "firma"); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("no equipo err = %v", err)
	}
	if _, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, uuid.NewString(), "firma"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown equipo err = %v", err)
	}
	equipoID := seedEquipo(t, devices)
	if _, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, equipoID, "  "); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("blank firma err = %v", err)
	}
	if _, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, equipoID, "J. Quispe"); err != nil {
		t.Fatalf("delivery: %v", err)
	}
}

func TestAsignacionUpdateAfterDelivery(t *testing.T) {
	svc, _, devices, _ := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, "Movistar")
	if _, err := svc.DecideGerencia(context.Background(), gerencia, ticket.ID, true); err != nil {
		t.Fatalf("DecideGerencia: %v", err)
	}
	if _, err := svc.DecideAdmin(context.Background(), admin, ticket.ID, true); err != nil {
		t.Fatalf("DecideAdmin: %v", err)
	}
	equipoID := seedEquipo(t, devices)
	if _, err := svc.RegisterDelivery(context.Background(), admin, ticket.ID, equipoID, "J. Quispe"); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	asgs, _ := svc.ListAsignaciones(context.Background())
	if len(asgs) != 1 {
		t.Fatalf("asignaciones = %d", len(asgs))
	}

	// The end-user is editable after delivery even though the ticket is terminal.
	updated, err := svc.UpdateAsignacion(context.Background(), admin, asgs[0].ID, "99887766", "Nueva Persona", "Ventas")
	if err != nil {
		t.Fatalf("UpdateAsignacion: %v", err)
	}
	if updated.DNI != "99887766" || updated.Nombre != "Nueva Persona" {
		t.Fatalf("updated = %+v", updated)
	}

	// The ticket itself is untouched.
	stored, err := svc.Get(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Estado != domain.EstadoEntregado || stored.DNI != "11223344" {
		t.Fatalf("ticket mutated: estado=%q dni=%q", stored.Estado, stored.DNI)
	}

	if _, err := svc.UpdateAsignacion(context.Background(), admin, "nope", "1", "X", ""); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown asignacion err = %v", err)
	}
}

func TestTelephonyRoleGating(t *testing.T) {
	svc, _, _, _ := newTelephonyFixture(t)
	ticket := crearLineaNueva(t, svc, "Movistar")

	if _, err := svc.DecideGerencia(context.Background(), admin, ticket.ID, true); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("admin on gerencia tier err = %v", err)
	}
	if _, err := svc.DecideAdmin(context.Background(), gerencia, ticket.ID, true); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("gerencia on admin tier err = %v", err)
	}
	if _, err := svc.RegisterDelivery(context.Background(), solicitante, ticket.ID, "x", "firma"); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("solicitante delivery err = %v", err)
	}
	if _, err := svc.RegisterEquipo(context.Background(), proveedor, "Equipo", ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("proveedor inventory err = %v", err)
	}
}
