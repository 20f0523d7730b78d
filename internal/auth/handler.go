package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/accounts"
)

// Handler exposes registration and login endpoints.
type Handler struct {
	accounts *accounts.Service
	auth     *Service
}

// NewHandler builds an auth HTTP handler.
func NewHandler(accountSvc *accounts.Service, authSvc *Service) *Handler {
	return &Handler{accounts: accountSvc, auth: authSvc}
}

type credentialsRequest struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	PIN     string `json:"pin"`
}

// Register binds a ledger address to a PIN.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.accounts.Register(c.UserContext(), accounts.Credentials{
		Address: req.Address,
		Label:   req.Label,
		PIN:     req.PIN,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrExists) {
			return fiber.NewError(http.StatusConflict, "address already registered")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":      account.ID,
		"address": account.Address.String(),
		"label":   account.Label,
	})
}

// Login verifies credentials and issues a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.accounts.Authenticate(c.UserContext(), accounts.Credentials{
		Address: req.Address,
		PIN:     req.PIN,
	})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}
	session, err := h.auth.Login(account)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(session)
}
