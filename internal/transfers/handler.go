package transfers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/token"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service  *Service
	decimals int
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service, decimals int) *Handler {
	return &Handler{service: service, decimals: decimals}
}

type transferRequest struct {
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

// Send moves tokens from the caller's account to the target address.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, ok := c.Locals("caller_address").(ledger.Address)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller identity missing")
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := token.ParseUnits(req.Amount, h.decimals)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), Input{
		Caller:    caller,
		From:      caller,
		To:        to,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		case errors.Is(err, ledger.ErrInsufficientAvailable):
			return fiber.NewError(http.StatusUnprocessableEntity, "amount exceeds available balance")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, "insufficient funds")
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(http.StatusForbidden, "not owner of source account")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"reference":    res.Reference,
		"from_balance": res.FromBalance.String(),
		"to_balance":   res.ToBalance.String(),
		"completed_at": res.CompletedAt,
	})
}
