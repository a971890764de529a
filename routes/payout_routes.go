package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/middleware"
)

func PayoutRoutes(api fiber.Router, h Handlers, protected fiber.Handler) {
	api.Get("/payouts/mine", protected, h.Payouts.ListMine)
	api.Post("/payouts", protected, middleware.VerifiedRequired(), h.Payouts.Submit)
}

func ReviewRoutes(api fiber.Router, h Handlers, protected fiber.Handler) {
	api.Post("/reviews", protected, middleware.VerifiedRequired(), h.Reviews.Create)
}
