package routes

import "github.com/gofiber/fiber/v2"

func ProfileRoutes(api fiber.Router, h Handlers, protected fiber.Handler) {
	profile := api.Group("/profile", protected)

	profile.Get("/me", h.Profile.GetMe)
	profile.Put("/me", h.Profile.UpdateMe)
}
