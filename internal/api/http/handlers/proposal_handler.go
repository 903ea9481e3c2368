package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/solicitudes-service/internal/api/dto"
	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/service"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// ProposalHandler manages flight proposal endpoints.
type ProposalHandler struct {
	service *service.ProposalService
}

// NewProposalHandler constructs handler.
func NewProposalHandler(proposalService *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{service: proposalService}
}

// Create POST /solicitudes/viajes/:codigo/propuestas.
func (h *ProposalHandler) Create(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreatePropuestaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.ProposalCreateInput{
		Codigo:     c.Params("codigo"),
		Proveedor:  req.Proveedor,
		CostoTotal: req.CostoTotal,
		Moneda:     req.Moneda,
		Sentido:    domain.Sentido(req.Sentido),
	}
	for _, t := range req.Tramos {
		input.Tramos = append(input.Tramos, service.TramoInput{
			Origen:    t.Origen,
			Destino:   t.Destino,
			Salida:    t.Salida,
			Llegada:   t.Llegada,
			Aerolinea: t.Aerolinea,
			NroVuelo:  t.NroVuelo,
			Tarifa:    t.Tarifa,
		})
	}
	proposal, err := h.service.Create(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromPropuesta(proposal)})
}

// List GET /solicitudes/viajes/:codigo/propuestas.
func (h *ProposalHandler) List(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	proposals, err := h.service.ListByTicket(c.Context(), c.Params("codigo"))
	if err != nil {
		return err
	}
	items := make([]dto.PropuestaResponse, 0, len(proposals))
	for i := range proposals {
		items = append(items, dto.FromPropuesta(&proposals[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SelectAdmin POST /solicitudes/viajes/:codigo/seleccion-admin.
func (h *ProposalHandler) SelectAdmin(c *fiber.Ctx) error {
	return h.selectWith(c, h.service.SelectAdmin)
}

// SelectGerencia POST /solicitudes/viajes/:codigo/seleccion-gerencia.
func (h *ProposalHandler) SelectGerencia(c *fiber.Ctx) error {
	return h.selectWith(c, h.service.SelectGerencia)
}

func (h *ProposalHandler) selectWith(c *fiber.Ctx, fn func(ctx context.Context, actor service.Identity, codigo string, ida, vuelta *int) (*domain.SolicitudViaje, error)) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.SeleccionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Ida == nil && req.Vuelta == nil {
		return apperrors.NewValidationError("at least one proposal number required", nil)
	}
	ticket, err := fn(c.Context(), actor, c.Params("codigo"), req.Ida, req.Vuelta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}
