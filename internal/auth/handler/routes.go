package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Delete("/session", h.Logout)
	v1.Post("/password/forgot", h.ForgotPassword)
	v1.Post("/password/reset", h.ResetPassword)
	v1.Post("/verify-email", h.VerifyEmail)
}
