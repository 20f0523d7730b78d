package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

// Handler exposes token metadata and account view endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a token HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Info returns token metadata and total supply.
func (h *Handler) Info(c *fiber.Ctx) error {
	info, err := h.service.Info(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"name":         info.Name,
		"symbol":       info.Symbol,
		"decimals":     info.Decimals,
		"total_supply": info.TotalSupply.String(),
	})
}

// Balance returns the total/available/locked view for an account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	account, err := ledger.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	view, err := h.service.Balances(c.UserContext(), account)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	decimals := h.service.Decimals()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":           account.String(),
		"balance":           view.Balance.String(),
		"available":         view.Available.String(),
		"locked":            view.Locked.String(),
		"balance_display":   FormatUnits(view.Balance, decimals),
		"available_display": FormatUnits(view.Available, decimals),
		"locked_display":    FormatUnits(view.Locked, decimals),
		"timestamp":         time.Now().UTC(),
	})
}

type lockView struct {
	Index      uint64 `json:"index"`
	Amount     string `json:"amount"`
	Display    string `json:"amount_display"`
	UnlockTime int64  `json:"unlock_time"`
}

// Locks returns the live locks plus the total-ever count for an account.
func (h *Handler) Locks(c *fiber.Ctx) error {
	account, err := ledger.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	view, err := h.service.Locks(c.UserContext(), account)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	locks := make([]lockView, 0, len(view.Active))
	for _, l := range view.Active {
		locks = append(locks, lockView{
			Index:      l.Index,
			Amount:     l.Amount.String(),
			Display:    FormatUnits(l.Amount, h.service.Decimals()),
			UnlockTime: l.UnlockTime,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":    account.String(),
		"lock_count": view.Count,
		"locks":      locks,
	})
}

type mintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Mint issues new supply. The caller identity comes from the session
// middleware; the authorization policy decides whether it may mint.
func (h *Handler) Mint(c *fiber.Ctx) error {
	var req mintRequest
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
	amount, err := ParseUnits(req.Amount, h.service.Decimals())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Mint(c.UserContext(), MintInput{Caller: caller, To: to, Amount: amount})
	if err != nil {
		switch {
		case errors.Is(err, ErrMintNotAuthorized):
			return fiber.NewError(http.StatusForbidden, "not authorized to mint")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"to":           to.String(),
		"balance":      res.Balance.String(),
		"total_supply": res.TotalSupply.String(),
	})
}
