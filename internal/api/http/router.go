package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/http/handlers"
	"github.com/deskops/support-core/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Stats          *handlers.StatsHandler
	Inbox          *handlers.InboxHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/agents/login", cfg.Agents.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("", auth.RequireCapability(auth.CapabilityTicketsRead), cfg.Tickets.ListTickets)
	tickets.Post("", auth.RequireCapability(auth.CapabilityTicketsWrite), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", auth.RequireCapability(auth.CapabilityTicketsRead), cfg.Tickets.GetTicket)
	tickets.Get("/:id/activity", auth.RequireCapability(auth.CapabilityTicketsRead), cfg.Tickets.ListActivity)
	tickets.Post("/:id/transition", auth.RequireCapability(auth.CapabilityTicketsWrite), cfg.Tickets.Transition)
	tickets.Post("/:id/assign", auth.RequireCapability(auth.CapabilityTicketsAssign), cfg.Tickets.Assign)
	tickets.Post("/:id/first-response", auth.RequireCapability(auth.CapabilityTicketsWrite), cfg.Tickets.RecordFirstResponse)
	tickets.Post("/:id/notes", auth.RequireCapability(auth.CapabilityTicketsWrite), cfg.Tickets.AddNote)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireCapability(auth.CapabilityNotificationsManage))
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/count", cfg.Notifications.Count)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("", cfg.Notifications.ClearAll)

	stats := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireCapability(auth.CapabilityStatsRead))
	stats.Get("/stats", cfg.Stats.GetStats)
	stats.Get("/badges", cfg.Stats.GetBadges)

	internal := app.Group("/internal", cfg.AuthMiddleware.Handle, auth.RequireCapability(auth.CapabilityInboxIngest))
	internal.Post("/conversations/:id/messages", cfg.Inbox.InboundMessage)
	internal.Post("/conversations/:id/read", cfg.Inbox.MarkRead)
}
