package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/superfunded/payout_portal/handlers"
	"github.com/superfunded/payout_portal/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Profile  *handlers.ProfileHandler
	Payouts  *handlers.PayoutHandler
	Admin    *handlers.AdminHandler
	Reviews  *handlers.ReviewHandler
	Stats    *handlers.StatsHandler
	Realtime *handlers.WSHandler
}

type Config struct {
	JWTSecret    []byte
	Sessions     middleware.SessionLoader
	Cache        middleware.CacheStore
	FeedCacheTTL time.Duration
}

// Setup mounts every route on app.
func Setup(app *fiber.App, h Handlers, cfg Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	protected := middleware.Protected(cfg.JWTSecret, cfg.Sessions)

	PublicRoutes(api, h, cfg)
	AuthRoutes(api, h, protected)
	ProfileRoutes(api, h, protected)
	PayoutRoutes(api, h, protected)
	ReviewRoutes(api, h, protected)
	AdminRoutes(api, h, protected)
	RealtimeRoutes(api, h, cfg)
}
