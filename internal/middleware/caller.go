package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/auth"
	"github.com/vesta-dapp/vesta_ledger/internal/config"
	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

// callerAddressKey is the locals key under which the resolved caller
// address is stored for handlers.
const callerAddressKey = "caller_address"

// Caller validates the session token and resolves the caller's ledger
// address. Handlers behind it can rely on caller_address being a
// ledger.Address.
func Caller(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		if exp, ok := claims["exp"].(float64); ok && int64(exp) < c.Context().Time().Unix() {
			return fiber.NewError(http.StatusUnauthorized, "token expired")
		}

		sub, _ := claims["sub"].(string)
		address, err := ledger.ParseAddress(sub)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "malformed subject address")
		}

		c.Locals(callerAddressKey, address)
		return c.Next()
	}
}
