package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/solicitudes-service/internal/api/http/handlers"
	"github.com/spec-kit/solicitudes-service/internal/auth"
	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Telephony      *handlers.TelephonyHandler
	Travel         *handlers.TravelHandler
	Proposals      *handlers.ProposalHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role guards at the router reject early;
// the services re-check the acting role on every transition.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	telefonia := api.Group("/solicitudes/telefonia")
	telefonia.Post("", cfg.Telephony.Create)
	telefonia.Get("", cfg.Telephony.List)
	telefonia.Get("/:id", cfg.Telephony.Get)
	telefonia.Post("/:id/decision-gerencia", auth.RequireRole(domain.RoleGerencia), cfg.Telephony.DecideGerencia)
	telefonia.Post("/:id/decision-admin", auth.RequireRole(domain.RoleAdmin), cfg.Telephony.DecideAdmin)
	telefonia.Post("/:id/entrega", auth.RequireRole(domain.RoleAdmin), cfg.Telephony.RegisterDelivery)

	equipos := api.Group("/equipos")
	equipos.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Telephony.RegisterEquipo)
	equipos.Get("", cfg.Telephony.ListEquipos)

	asignaciones := api.Group("/asignaciones")
	asignaciones.Get("", cfg.Telephony.ListAsignaciones)
	asignaciones.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Telephony.UpdateAsignacion)

	viajes := api.Group("/solicitudes/viajes")
	viajes.Post("", cfg.Travel.Create)
	viajes.Get("", cfg.Travel.List)
	viajes.Get("/:codigo", cfg.Travel.Get)
	viajes.Put("/:codigo/proveedor", auth.RequireRole(domain.RoleGestion, domain.RoleGerencia), cfg.Travel.SetProveedor)
	viajes.Put("/:codigo/costo", auth.RequireRole(domain.RoleProveedor), cfg.Travel.SetCosto)
	viajes.Post("/:codigo/aprobacion-costo", auth.RequireRole(domain.RoleGestion, domain.RoleGerencia), cfg.Travel.AprobarCosto)
	viajes.Post("/:codigo/pase", auth.RequireRole(domain.RoleGestion, domain.RoleGerencia), cfg.Travel.GenerarPase)
	viajes.Put("/:codigo/factura", auth.RequireRole(domain.RoleProveedor), cfg.Travel.SubirFactura)
	viajes.Post("/:codigo/cierre", auth.RequireRole(domain.RoleGestion), cfg.Travel.Cerrar)
	viajes.Post("/:codigo/compra", auth.RequireRole(domain.RoleAdmin), cfg.Travel.IniciarCompra)
	viajes.Post("/:codigo/compra-confirmacion", auth.RequireRole(domain.RoleAdmin), cfg.Travel.ConfirmarCompra)

	viajes.Post("/:codigo/propuestas", auth.RequireRole(domain.RoleProveedor), cfg.Proposals.Create)
	viajes.Get("/:codigo/propuestas", cfg.Proposals.List)
	viajes.Post("/:codigo/seleccion-admin", auth.RequireRole(domain.RoleAdmin), cfg.Proposals.SelectAdmin)
	viajes.Post("/:codigo/seleccion-gerencia", auth.RequireRole(domain.RoleGerencia), cfg.Proposals.SelectGerencia)
}
