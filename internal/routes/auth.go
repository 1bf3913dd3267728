package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/monitor-mbg/monitor_mbg/internal/auth"
)

// RegisterAuthRoutes wires the authentication and phone-verification
// endpoints. Only the profile route sits behind the bearer guard.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, guard fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/otp/send", h.SendOTP)
	group.Post("/otp/verify", h.VerifyOTP)
	group.Get("/me", guard, h.Me)
}
