package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/solicitudes-service/internal/api/dto"
	"github.com/spec-kit/solicitudes-service/internal/domain"
	"github.com/spec-kit/solicitudes-service/internal/service"
	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

// TravelHandler manages travel and lodging request endpoints.
type TravelHandler struct {
	service *service.TravelService
}

// NewTravelHandler constructs handler.
func NewTravelHandler(travelService *service.TravelService) *TravelHandler {
	return &TravelHandler{service: travelService}
}

// Create POST /solicitudes/viajes.
func (h *TravelHandler) Create(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateViajeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TravelCreateInput{
		DNI:          req.DNI,
		Nombre:       req.Nombre,
		Gerencia:     req.Gerencia,
		Tipo:         domain.TipoViaje(req.Tipo),
		Subtipo:      domain.SubtipoViaje(req.Subtipo),
		Salida:       req.Salida,
		Retorno:      req.Retorno,
		Lugar:        req.Lugar,
		Inicio:       req.Inicio,
		Fin:          req.Fin,
		Traslado:     req.Traslado,
		Alimentacion: req.Alimentacion,
		Motivo:       req.Motivo,
	}
	ticket, err := h.service.Crear(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

// List GET /solicitudes/viajes.
func (h *TravelHandler) List(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	tickets, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.ViajeResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromViaje(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /solicitudes/viajes/:codigo.
func (h *TravelHandler) Get(c *fiber.Ctx) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}
	ticket, err := h.service.Get(c.Context(), c.Params("codigo"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

// SetProveedor PUT /solicitudes/viajes/:codigo/proveedor.
func (h *TravelHandler) SetProveedor(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.ProveedorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.SetProveedor(c.Context(), actor, c.Params("codigo"), req.Proveedor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

// SetCosto PUT /solicitudes/viajes/:codigo/costo.
func (h *TravelHandler) SetCosto(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.CostoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.SetCostoConVigencia(c.Context(), actor, c.Params("codigo"), req.Monto, req.HorasVigencia)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

// AprobarCosto POST /solicitudes/viajes/:codigo/aprobacion-costo.
func (h *TravelHandler) AprobarCosto(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.AprobarCostoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.AprobarCosto(c.Context(), actor, c.Params("codigo"), *req.Aprueba)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

// GenerarPase POST /solicitudes/viajes/:codigo/pase.
func (h *TravelHandler) GenerarPase(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.GenerarPase)
}

// IniciarCompra POST /solicitudes/viajes/:codigo/compra.
func (h *TravelHandler) IniciarCompra(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.IniciarCompra)
}

// ConfirmarCompra POST /solicitudes/viajes/:codigo/compra-confirmacion.
func (h *TravelHandler) ConfirmarCompra(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.ConfirmarCompra)
}

// Cerrar POST /solicitudes/viajes/:codigo/cierre.
func (h *TravelHandler) Cerrar(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Cerrar)
}

// SubirFactura PUT /solicitudes/viajes/:codigo/factura.
func (h *TravelHandler) SubirFactura(c *fiber.Ctx) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	var req dto.FacturaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.SubirFactura(c.Context(), actor, c.Params("codigo"), req.Factura)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}

func (h *TravelHandler) simpleTransition(c *fiber.Ctx, fn func(ctx context.Context, actor service.Identity, codigo string) (*domain.SolicitudViaje, error)) error {
	actor, err := identityFrom(c)
	if err != nil {
		return err
	}
	ticket, err := fn(c.Context(), actor, c.Params("codigo"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromViaje(ticket)})
}
