package routes

import "github.com/gofiber/fiber/v2"

func AuthRoutes(api fiber.Router, h Handlers, protected fiber.Handler) {
	auth := api.Group("/auth")

	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/verify-email", h.Auth.VerifyEmail)
	auth.Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/logout", protected, h.Auth.Logout)
}
