package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/middleware"
)

func AdminRoutes(api fiber.Router, h Handlers, protected fiber.Handler) {
	admin := api.Group("/admin", protected, middleware.AdminRequired())

	payouts := admin.Group("/payouts")
	payouts.Get("/pending", h.Admin.ListPendingPayouts)
	payouts.Get("/stats", h.Admin.PayoutStats)
	payouts.Post("/:payoutId/approve", h.Admin.ApprovePayout)
	payouts.Post("/:payoutId/reject", h.Admin.RejectPayout)
	payouts.Get("/:payoutId/events", h.Admin.PayoutEvents)

	admin.Delete("/reviews/:reviewId", h.Admin.DeleteReview)
}
