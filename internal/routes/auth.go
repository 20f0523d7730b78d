package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/auth"
)

// RegisterAuthRoutes wires registration and session endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, loginRateLimit fiber.Handler) {
	r.Post("/accounts", h.Register)
	r.Post("/sessions", loginRateLimit, h.Login)
}
