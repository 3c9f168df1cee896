package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportbase/keel/internal/api/http/handlers"
	"github.com/supportbase/keel/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Webhooks       *handlers.WebhooksHandler
	Events         *handlers.EventsHandler
	Push           *handlers.PushHandler
	Customers      *handlers.CustomersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	// Webhooks are authenticated by obscurity on the provider side and
	// must always acknowledge, so they sit outside the auth middleware.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/quo", cfg.Webhooks.Telephony)
	webhooks.Post("/shopify", cfg.Webhooks.ShopifyOrder)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	events := api.Group("/events", cfg.AuthMiddleware.Handle)
	events.Get("/stream", cfg.Events.Stream)

	pushGroup := api.Group("/push")
	pushGroup.Get("/vapid-key", cfg.Push.VapidKey)
	pushGroup.Post("/subscribe", cfg.AuthMiddleware.Handle, cfg.Push.Subscribe)
	pushGroup.Delete("/subscribe", cfg.AuthMiddleware.Handle, cfg.Push.Unsubscribe)
	pushGroup.Post("/token", cfg.AuthMiddleware.Handle, cfg.Push.RegisterToken)
	pushGroup.Delete("/token", cfg.AuthMiddleware.Handle, cfg.Push.RemoveToken)
	pushGroup.Put("/availability", cfg.AuthMiddleware.Handle, cfg.Push.SetAvailability)

	customers := api.Group("/customers", cfg.AuthMiddleware.Handle)
	customers.Get("/lookup", cfg.Customers.Lookup)
}
