package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/middleware"
)

func PublicRoutes(api fiber.Router, h Handlers, cfg Config) {
	feed := []fiber.Handler{h.Payouts.ListApproved}
	if cfg.Cache != nil {
		feed = append([]fiber.Handler{middleware.ResponseCache(cfg.Cache, cfg.FeedCacheTTL)}, feed...)
	}

	api.Get("/payouts", feed...)
	api.Get("/stats", h.Stats.Public)
	api.Get("/reviews", h.Reviews.List)
}
