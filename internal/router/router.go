package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/orthrauku-dev/yt-sus/internal/handler"
	"github.com/orthrauku-dev/yt-sus/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote    *handler.VoteHandler
	Channel *handler.ChannelHandler
	Stats   *handler.StatsHandler
	Health  *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics (outside the API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")

	// Vote submission requires extension identification headers
	api.Post("/votes", h.Vote.Submit, middleware.NewSourceCheck())

	// Read side
	api.Get("/channels", h.Channel.ListFlagged)
	api.Get("/channels/check", h.Channel.Check)

	api.Get("/stats", h.Stats.GetStats)
}
