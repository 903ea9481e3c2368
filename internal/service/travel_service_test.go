package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/events"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

var (
	solicitante = Identity{ID: "u-sol", Email: "sol@acme.pe", Name: "Sol", Role: domain.RoleSolicitante}
	gestion     = Identity{ID: "u-ges", Email: "ges@acme.pe", Name: "Ges", Role: domain.RoleGestion}
	gerencia    = Identity{ID: "u-ger", Email: "ger@acme.pe", Name: "Ger", Role: domain.RoleGerencia}
	admin       = Identity{ID: "u-adm", Email: "adm@acme.pe", Name: "Adm", Role: domain.RoleAdmin}
	proveedor   = Identity{ID: "u-pro", Email: "pro@acme.pe", Name: "Pro", Role: domain.RoleProveedor}
)

func newTravelFixture(t *testing.T) (*TravelService, *fakeTravelRepo, *recordingDispatcher) {
	t.Helper()
	repo := newFakeTravelRepo()
	disp := &recordingDispatcher{}
	svc := NewTravelService(TravelDependencies{
		TicketRepo:       repo,
		Dispatcher:       disp,
		VigenciaMinHoras: 1,
		VigenciaMaxHoras: 720,
	})
	return svc, repo, disp
}

func at(svc *TravelService, instant time.Time) {
	svc.now = func() time.Time { return instant }
}

func crearTerrestre(t *testing.T, svc *TravelService) *domain.SolicitudViaje {
	t.Helper()
	salida := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	retorno := salida.Add(48 * time.Hour)
	ticket, err := svc.Crear(context.Background(), solicitante, TravelCreateInput{
		DNI:     "44556677",
		Nombre:  "Rosa Díaz",
		Tipo:    domain.TipoPasaje,
		Subtipo: domain.SubtipoTerrestre,
		Salida:  &salida,
		Retorno: &retorno,
	})
	if err != nil {
		t.Fatalf("Crear: %v", err)
	}
	return ticket
}

func TestCrearAssignsSequentialCodes(t *testing.T) {
	svc, _, disp := newTravelFixture(t)
	first := crearTerrestre(t, svc)
	second := crearTerrestre(t, svc)

	if first.Codigo != "PYH00001" || second.Codigo != "PYH00002" {
		t.Fatalf("codes = %q, %q", first.Codigo, second.Codigo)
	}
	if first.Estado != domain.EstadoPendiente {
		t.Fatalf("entry state = %q, want Pendiente", first.Estado)
	}
	if !disp.seen(events.EventTravelCreated) {
		t.Fatal("travel_created event not published")
	}
}

func TestCrearValidation(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	salida := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	antes := salida.Add(-time.Hour)

	cases := []struct {
		name  string
		input TravelCreateInput
	}{
		{"missing dni", TravelCreateInput{Nombre: "X", Tipo: domain.TipoPasaje, Subtipo: domain.SubtipoAereo, Salida: &salida, Retorno: &salida}},
		{"unknown tipo", TravelCreateInput{DNI: "1", Nombre: "X", Tipo: "Crucero"}},
		{"pasaje without subtipo", TravelCreateInput{DNI: "1", Nombre: "X", Tipo: domain.TipoPasaje, Salida: &salida, Retorno: &salida}},
		{"pasaje without dates", TravelCreateInput{DNI: "1", Nombre: "X", Tipo: domain.TipoPasaje, Subtipo: domain.SubtipoAereo}},
		{"retorno before salida", TravelCreateInput{DNI: "1", Nombre: "X", Tipo: domain.TipoPasaje, Subtipo: domain.SubtipoAereo, Salida: &salida, Retorno: &antes}},
		{"hospedaje without lugar", TravelCreateInput{DNI: "1", Nombre: "X", Tipo: domain.TipoHospedaje, Inicio: &salida, Fin: &salida}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Crear(context.Background(), solicitante, tc.input); !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Fatalf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestQuoteApproveInvoiceClose(t *testing.T) {
	svc, _, disp := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	ticket := crearTerrestre(t, svc)
	codigo := ticket.Codigo

	if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Transportes Sur"); err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}

	got, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 480, 24)
	if err != nil {
		t.Fatalf("SetCostoConVigencia: %v", err)
	}
	if got.Estado != domain.EstadoEnProceso {
		t.Fatalf("estado after quote = %q", got.Estado)
	}
	wantVence := base.Add(24 * time.Hour)
	if got.CostoVenceEn == nil || !got.CostoVenceEn.Equal(wantVence) {
		t.Fatalf("costo_vence_en = %v, want %v", got.CostoVenceEn, wantVence)
	}

	got, err = svc.AprobarCosto(context.Background(), gestion, codigo, true)
	if err != nil {
		t.Fatalf("AprobarCosto: %v", err)
	}
	if got.Estado != domain.EstadoCostoAprobado || !got.PaseCompra {
		t.Fatalf("after approval estado=%q pase=%v", got.Estado, got.PaseCompra)
	}

	if _, err := svc.GenerarPase(context.Background(), gestion, codigo); err != nil {
		t.Fatalf("GenerarPase: %v", err)
	}

	got, err = svc.SubirFactura(context.Background(), proveedor, codigo, "F001-0042")
	if err != nil {
		t.Fatalf("SubirFactura: %v", err)
	}
	if got.Estado != domain.EstadoFacturado {
		t.Fatalf("estado after factura = %q", got.Estado)
	}

	got, err = svc.Cerrar(context.Background(), gestion, codigo)
	if err != nil {
		t.Fatalf("Cerrar: %v", err)
	}
	if got.Estado != domain.EstadoCerrado || got.CerradoEn == nil {
		t.Fatalf("after close estado=%q cerrado_en=%v", got.Estado, got.CerradoEn)
	}

	// Closed tickets are immutable.
	if _, err := svc.Cerrar(context.Background(), gestion, codigo); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("second close err = %v, want INVALID_TRANSITION", err)
	}
	if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Otro"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("SetProveedor on closed err = %v", err)
	}
	if !disp.seen(events.EventCostQuoted) {
		t.Fatal("cost_quoted event not published")
	}
}

func TestQuoteExpiresAfterVigencia(t *testing.T) {
	svc, _, disp := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	ticket := crearTerrestre(t, svc)
	codigo := ticket.Codigo
	if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Transportes Sur"); err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 480, 24); err != nil {
		t.Fatalf("SetCostoConVigencia: %v", err)
	}

	// Inside the window the quote holds and a re-quote is rejected.
	at(svc, base.Add(23*time.Hour))
	got, err := svc.Get(context.Background(), codigo)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Costo == nil {
		t.Fatal("quote expired inside its validity window")
	}
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 500, 24); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("re-quote inside window err = %v", err)
	}

	// Past the window the quote is voided on read and stays voided.
	at(svc, base.Add(25*time.Hour))
	got, err = svc.Get(context.Background(), codigo)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Costo != nil || got.CostoVenceEn != nil {
		t.Fatalf("expired quote survived: costo=%v vence=%v", got.Costo, got.CostoVenceEn)
	}
	if got.Estado != domain.EstadoEnProceso {
		t.Fatalf("estado after expiry = %q", got.Estado)
	}
	if !disp.seen(events.EventCostExpired) {
		t.Fatal("cost_expired event not published")
	}

	// A later instant cannot resurrect it; a fresh quote is accepted.
	at(svc, base.Add(26*time.Hour))
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 520, 24); err != nil {
		t.Fatalf("fresh quote after expiry: %v", err)
	}
}

func TestApprovedCostNeverExpires(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	ticket := crearTerrestre(t, svc)
	codigo := ticket.Codigo
	if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Transportes Sur"); err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 480, 24); err != nil {
		t.Fatalf("SetCostoConVigencia: %v", err)
	}
	if _, err := svc.AprobarCosto(context.Background(), gestion, codigo, true); err != nil {
		t.Fatalf("AprobarCosto: %v", err)
	}

	at(svc, base.Add(1000*time.Hour))
	got, err := svc.Get(context.Background(), codigo)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Costo == nil || got.Estado != domain.EstadoCostoAprobado {
		t.Fatalf("approved cost expired: costo=%v estado=%q", got.Costo, got.Estado)
	}
}

func TestRejectionThenRequote(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	ticket := crearTerrestre(t, svc)
	codigo := ticket.Codigo
	if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Transportes Sur"); err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 480, 24); err != nil {
		t.Fatalf("SetCostoConVigencia: %v", err)
	}

	got, err := svc.AprobarCosto(context.Background(), gestion, codigo, false)
	if err != nil {
		t.Fatalf("AprobarCosto reject: %v", err)
	}
	if got.Estado != domain.EstadoRechazado || got.PaseCompra {
		t.Fatalf("after rejection estado=%q pase=%v", got.Estado, got.PaseCompra)
	}

	// The rejected quote is still within its window, so blocked until expiry.
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 450, 24); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("re-quote over vigente quote err = %v", err)
	}

	at(svc, base.Add(25*time.Hour))
	got, err = svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 450, 24)
	if err != nil {
		t.Fatalf("re-quote after expiry: %v", err)
	}
	if got.Estado != domain.EstadoEnProceso {
		t.Fatalf("estado after re-quote = %q, want En proceso", got.Estado)
	}
	if got.CostoAprobado != nil {
		t.Fatal("stale approval decision survived the re-quote")
	}
}

func TestVigenciaClamp(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	ticket := crearTerrestre(t, svc)
	if _, err := svc.SetProveedor(context.Background(), gestion, ticket.Codigo, "Transportes Sur"); err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}

	got, err := svc.SetCostoConVigencia(context.Background(), proveedor, ticket.Codigo, 480, 100000)
	if err != nil {
		t.Fatalf("SetCostoConVigencia: %v", err)
	}
	want := base.Add(720 * time.Hour)
	if got.CostoVenceEn == nil || !got.CostoVenceEn.Equal(want) {
		t.Fatalf("vence_en = %v, want clamped %v", got.CostoVenceEn, want)
	}

	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, ticket.Codigo, 480, -5); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		// Blocked by the fresh quote, but proves the negative window did not
		// validation-fail: it clamps, then hits the vigente-quote guard.
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}
	if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, ticket.Codigo, 0, 24); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("monto=0 err = %v, want VALIDATION_FAILED", err)
	}
}

func TestSweepExpiredCountsAndPersists(t *testing.T) {
	svc, repo, _ := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	quoted := crearTerrestre(t, svc)
	frozen := crearTerrestre(t, svc)
	bare := crearTerrestre(t, svc)

	for _, codigo := range []string{quoted.Codigo, frozen.Codigo} {
		if _, err := svc.SetProveedor(context.Background(), gestion, codigo, "Transportes Sur"); err != nil {
			t.Fatalf("SetProveedor: %v", err)
		}
		if _, err := svc.SetCostoConVigencia(context.Background(), proveedor, codigo, 480, 24); err != nil {
			t.Fatalf("SetCostoConVigencia: %v", err)
		}
	}
	if _, err := svc.AprobarCosto(context.Background(), gestion, frozen.Codigo, true); err != nil {
		t.Fatalf("AprobarCosto: %v", err)
	}

	at(svc, base.Add(48*time.Hour))
	expired, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	stored, _ := repo.GetByCodigo(context.Background(), quoted.Codigo)
	if stored.Costo != nil {
		t.Fatal("sweep did not persist the expiry")
	}
	storedFrozen, _ := repo.GetByCodigo(context.Background(), frozen.Codigo)
	if storedFrozen.Costo == nil {
		t.Fatal("sweep voided an approved cost")
	}
	storedBare, _ := repo.GetByCodigo(context.Background(), bare.Codigo)
	if storedBare.Estado != domain.EstadoPendiente {
		t.Fatalf("untouched ticket estado = %q", storedBare.Estado)
	}

	// Idempotent: a second sweep finds nothing.
	if expired, _ := svc.SweepExpired(context.Background()); expired != 0 {
		t.Fatalf("second sweep expired = %d, want 0", expired)
	}
}

func TestAirPathStatesAndPurchase(t *testing.T) {
	svc, repo, _ := newTravelFixture(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	at(svc, base)

	salida := base.Add(240 * time.Hour)
	retorno := salida.Add(72 * time.Hour)
	ticket, err := svc.Crear(context.Background(), solicitante, TravelCreateInput{
		DNI:     "44556677",
		Nombre:  "Rosa Díaz",
		Tipo:    domain.TipoPasaje,
		Subtipo: domain.SubtipoAereo,
		Salida:  &salida,
		Retorno: &retorno,
	})
	if err != nil {
		t.Fatalf("Crear: %v", err)
	}

	got, err := svc.SetProveedor(context.Background(), gestion, ticket.Codigo, "Viajes Andinos")
	if err != nil {
		t.Fatalf("SetProveedor: %v", err)
	}
	if got.Estado != domain.EstadoPendientePropuesta {
		t.Fatalf("air ticket estado = %q, want Pendiente propuesta", got.Estado)
	}

	// Purchase progression requires Gerencia aprobado first.
	if _, err := svc.IniciarCompra(context.Background(), admin, ticket.Codigo); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("IniciarCompra early err = %v", err)
	}

	// Simulate the selection outcome, then walk the purchase.
	stored, _ := repo.GetByCodigo(context.Background(), ticket.Codigo)
	stored.Estado = domain.EstadoGerenciaAprobado
	if err := repo.Update(context.Background(), stored); err != nil {
		t.Fatalf("seed estado: %v", err)
	}

	got, err = svc.IniciarCompra(context.Background(), admin, ticket.Codigo)
	if err != nil {
		t.Fatalf("IniciarCompra: %v", err)
	}
	if got.Estado != domain.EstadoPendienteCompra {
		t.Fatalf("estado = %q, want Pendiente de compra", got.Estado)
	}
	got, err = svc.ConfirmarCompra(context.Background(), admin, ticket.Codigo)
	if err != nil {
		t.Fatalf("ConfirmarCompra: %v", err)
	}
	if got.Estado != domain.EstadoCompraRealizada {
		t.Fatalf("estado = %q, want Compra realizada", got.Estado)
	}

	// Terrestrial tickets never enter the purchase progression.
	terrestre := crearTerrestre(t, svc)
	if _, err := svc.IniciarCompra(context.Background(), admin, terrestre.Codigo); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("terrestrial IniciarCompra err = %v", err)
	}
}

func TestTravelRoleGating(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	ticket := crearTerrestre(t, svc)
	codigo := ticket.Codigo

	cases := []struct {
		name string
		call func() error
	}{
		{"proveedor by proveedor", func() error { _, err := svc.SetProveedor(context.Background(), proveedor, codigo, "X"); return err }},
		{"costo by gestion", func() error { _, err := svc.SetCostoConVigencia(context.Background(), gestion, codigo, 100, 24); return err }},
		{"aprobar by solicitante", func() error { _, err := svc.AprobarCosto(context.Background(), solicitante, codigo, true); return err }},
		{"factura by admin", func() error { _, err := svc.SubirFactura(context.Background(), admin, codigo, "F001-1"); return err }},
		{"cerrar by gerencia", func() error { _, err := svc.Cerrar(context.Background(), gerencia, codigo); return err }},
		{"compra by gestion", func() error { _, err := svc.IniciarCompra(context.Background(), gestion, codigo); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !apperrors.IsCode(err, "FORBIDDEN") {
				t.Fatalf("err = %v, want FORBIDDEN", err)
			}
		})
	}
}

func TestGetUnknownCodigo(t *testing.T) {
	svc, _, _ := newTravelFixture(t)
	if _, err := svc.Get(context.Background(), "PYH09999"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
