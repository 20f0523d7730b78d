package locks

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/token"
)

// Handler exposes lock and unlock endpoints.
type Handler struct {
	service  *Service
	decimals int
}

// NewHandler constructs a lock handler.
func NewHandler(service *Service, decimals int) *Handler {
	return &Handler{service: service, decimals: decimals}
}

type lockRequest struct {
	Amount string `json:"amount"`
	// Duration accepts whole seconds ("3600") or a Go duration ("1h").
	Duration string `json:"duration"`
}

func parseDuration(s string) (time.Duration, error) {
	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Create locks part of the caller's available balance for a duration.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req lockRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, ok := c.Locals("caller_address").(ledger.Address)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller identity missing")
	}
	amount, err := token.ParseUnits(req.Amount, h.decimals)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	duration, err := parseDuration(req.Duration)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid duration")
	}

	res, err := h.service.Lock(c.UserContext(), caller, amount, duration)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		case errors.Is(err, ledger.ErrInvalidDuration):
			return fiber.NewError(http.StatusBadRequest, "invalid duration")
		case errors.Is(err, ledger.ErrInsufficientAvailable):
			return fiber.NewError(http.StatusUnprocessableEntity, "amount exceeds available balance")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"index":       res.Index,
		"unlock_time": res.UnlockTime,
		"available":   res.Available.String(),
		"locked":      res.Locked.String(),
	})
}

// List returns the caller's live locks and total-ever count.
func (h *Handler) List(c *fiber.Ctx) error {
	caller, ok := c.Locals("caller_address").(ledger.Address)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller identity missing")
	}
	active, count, err := h.service.Active(c.UserContext(), caller)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	views := make([]fiber.Map, 0, len(active))
	for _, lk := range active {
		views = append(views, fiber.Map{
			"index":          lk.Index,
			"amount":         lk.Amount.String(),
			"amount_display": token.FormatUnits(lk.Amount, h.decimals),
			"unlock_time":    lk.UnlockTime,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":    caller.String(),
		"lock_count": count,
		"locks":      views,
	})
}

// Release unlocks the caller's matured lock by index.
func (h *Handler) Release(c *fiber.Ctx) error {
	caller, ok := c.Locals("caller_address").(ledger.Address)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller identity missing")
	}
	index, err := strconv.ParseUint(c.Params("index"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid lock index")
	}

	res, err := h.service.Unlock(c.UserContext(), caller, index)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrLockNotFound):
			return fiber.NewError(http.StatusNotFound, "lock not found")
		case errors.Is(err, ledger.ErrAlreadyUnlocked):
			return fiber.NewError(http.StatusConflict, "lock already unlocked")
		case errors.Is(err, ledger.ErrStillLocked):
			return fiber.NewError(http.StatusUnprocessableEntity, "tokens are still locked")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"released":  res.Amount.String(),
		"available": res.Available.String(),
		"locked":    res.Locked.String(),
	})
}
