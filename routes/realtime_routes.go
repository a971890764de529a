package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/middleware"
)

func RealtimeRoutes(api fiber.Router, h Handlers, cfg Config) {
	api.Get("/ws",
		h.Realtime.RequireUpgrade,
		middleware.ProtectedQuery(cfg.JWTSecret, cfg.Sessions),
		h.Realtime.Serve(),
	)
}
