package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/services"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Public backs the landing page counters.
func (h *StatsHandler) Public(c *fiber.Ctx) error {
	stats, err := h.stats.Public(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
