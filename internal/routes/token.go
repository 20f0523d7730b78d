package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/token"
)

// RegisterTokenReadRoutes wires the public token metadata and account
// view endpoints. Reads require no session.
func RegisterTokenReadRoutes(r fiber.Router, h *token.Handler) {
	r.Get("/token", h.Info)
	r.Get("/accounts/:address/balance", h.Balance)
	r.Get("/accounts/:address/locks", h.Locks)
}

// RegisterMintRoute wires the authorized supply issuance endpoint.
func RegisterMintRoute(r fiber.Router, h *token.Handler) {
	r.Post("/token/mint", h.Mint)
}
