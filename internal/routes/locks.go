package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/locks"
)

// RegisterLockRoutes wires lock lifecycle endpoints.
func RegisterLockRoutes(r fiber.Router, h *locks.Handler) {
	r.Get("/locks", h.List)
	r.Post("/locks", h.Create)
	r.Post("/locks/:index/unlock", h.Release)
}
