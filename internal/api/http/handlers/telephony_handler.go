package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/solicitudes-service/internal/api/dto"
	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/service"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// TelephonyHandler manages telephony request endpoints.
type TelephonyHandler struct {
	service *service.TelephonyService
}

// NewTelephonyHandler constructs handler.
func NewTelephonyHandler(telephonyService *service.TelephonyService) *TelephonyHandler {
	return &TelephonyHandler{service: telephonyService}
}

// Create POST /solicitudes/telefonia.
func (h *TelephonyHandler) Create(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTelefoniaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TelephonyCreateInput{
		DNI:             req.DNI,
		Nombre:          req.Nombre,
		Area:            req.Area,
		Cargo:           req.Cargo,
		LineaReferencia: req.LineaReferencia,
		Tipo:            domain.TipoSolicitud(req.Tipo),
		Servicio:        req.Servicio,
		Plan:            req.Plan,
	}
	if req.Reposicion != nil {
		if err := dto.Validate(*req.Reposicion); err != nil {
			return err
		}
		input.Reposicion = &domain.Reposicion{
			Motivo:         domain.MotivoIncidencia(req.Reposicion.Motivo),
			AsumeCosto:     domain.AsumeCosto(req.Reposicion.AsumeCosto),
			Cuotas:         req.Reposicion.Cuotas,
			TieneEvidencia: req.Reposicion.TieneEvidencia,
			NumeroAfectado: req.Reposicion.NumeroAfectado,
			EquipoAnterior: req.Reposicion.EquipoAnterior,
		}
	}
	ticket, err := h.service.Create(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTelefonia(ticket)})
}

// List GET /solicitudes/telefonia.
func (h *TelephonyHandler) List(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	tickets, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TelefoniaResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTelefonia(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /solicitudes/telefonia/:id.
func (h *TelephonyHandler) Get(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	ticket, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTelefonia(ticket)})
}

// DecideGerencia POST /solicitudes/telefonia/:id/decision-gerencia.
func (h *TelephonyHandler) DecideGerencia(c *fiber.Ctx) error {
	return h.decide(c, h.service.DecideGerencia)
}

// DecideAdmin POST /solicitudes/telefonia/:id/decision-admin.
func (h *TelephonyHandler) DecideAdmin(c *fiber.Ctx) error {
	return h.decide(c, h.service.DecideAdmin)
}

func (h *TelephonyHandler) decide(c *fiber.Ctx, fn func(ctx context.Context, actor service.Identity, id string, approved bool) (*domain.SolicitudTelefonia, error)) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := fn(c.Context(), actor, c.Params("id"), *req.Aprobada)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTelefonia(ticket)})
}

// RegisterDelivery POST /solicitudes/telefonia/:id/entrega.
func (h *TelephonyHandler) RegisterDelivery(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.EntregaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.RegisterDelivery(c.Context(), actor, c.Params("id"), req.EquipoID, req.Firma)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTelefonia(ticket)})
}

// RegisterEquipo POST /equipos.
func (h *TelephonyHandler) RegisterEquipo(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.EquipoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	equipo, err := h.service.RegisterEquipo(c.Context(), actor, req.Descripcion, req.Serie)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromEquipo(equipo)})
}

// ListEquipos GET /equipos.
func (h *TelephonyHandler) ListEquipos(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	equipos, err := h.service.ListEquipos(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.EquipoResponse, 0, len(equipos))
	for i := range equipos {
		items = append(items, dto.FromEquipo(&equipos[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAsignaciones GET /asignaciones.
func (h *TelephonyHandler) ListAsignaciones(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	records, err := h.service.ListAsignaciones(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AsignacionResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.FromAsignacion(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateAsignacion PUT /asignaciones/:id.
func (h *TelephonyHandler) UpdateAsignacion(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.AsignacionUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	record, err := h.service.UpdateAsignacion(c.Context(), actor, c.Params("id"), req.DNI, req.Nombre, req.Area)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromAsignacion(record)})
}
