package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/equipdesk/equipdesk/internal/api/http/handlers"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Chat           *handlers.ChatHandler
	Directory      *handlers.DirectoryHandler
	Stream         *handlers.StreamHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/auth/logout", cfg.Auth.Logout)

	protected.Get("/locations", cfg.Directory.ListLocations)
	protected.Get("/equipment", cfg.Directory.ListEquipment)
	protected.Get("/equipment/:id/tickets", cfg.Directory.DeviceHistory)
	protected.Get("/dashboard", auth.RequireRole(domain.RoleAdministrator), cfg.Directory.Dashboard)
	protected.Get("/technicians", auth.RequireRole(domain.RoleAdministrator), cfg.Directory.ListTechnicians)

	tickets := protected.Group("/tickets")
	tickets.Get("/stream", cfg.Stream.Tickets)
	tickets.Post("", auth.RequireRole(domain.RoleEmployee), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/number/:number", cfg.Tickets.GetTicketByNumber)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdministrator), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/deny", auth.RequireRole(domain.RoleAdministrator), cfg.Tickets.DenyTicket)
	tickets.Post("/:id/reactivate", auth.RequireRole(domain.RoleAdministrator), cfg.Tickets.ReactivateTicket)
	tickets.Post("/:id/resolve", auth.RequireRole(domain.RoleTechnician), cfg.Tickets.ResolveTicket)

	tickets.Get("/:id/messages", cfg.Chat.ListMessages)
	tickets.Post("/:id/messages", cfg.Chat.PostMessage)
	tickets.Post("/:id/feedback", auth.RequireRole(domain.RoleEmployee), cfg.Chat.SubmitFeedback)
	tickets.Get("/:id/feedback", cfg.Chat.GetFeedback)

	protected.Get("/technicians/:email/feedback", cfg.Chat.ListTechnicianFeedback)
}
