package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/dto"
	"github.com/spec-kit/intake-service/internal/service"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// AccountsHandler exposes registration, login and the account listing.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accountService}
}

// Register handles POST /register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid_payload", "invalid payload")
	}

	account, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": account.ID}})
}

// Login handles POST /login. Unknown accounts answer 404 and wrong
// passwords 401, both with a soft failure body.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid_payload", "invalid payload")
	}

	result, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case service.LoginAccountNotFound:
		return c.Status(http.StatusNotFound).JSON(dto.LoginFailure{
			Reason:  string(result.Outcome),
			Message: "account not found",
		})
	case service.LoginInvalidCredentials:
		return c.Status(http.StatusUnauthorized).JSON(dto.LoginFailure{
			Reason:  string(result.Outcome),
			Message: "invalid credentials",
		})
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     result.Token.Value,
			ExpiresAt: result.Token.ExpiresAt,
			Role:      result.Role,
		},
	})
}

// List handles GET /accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accounts.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, dto.NewAccountResponse(account))
	}
	return c.JSON(fiber.Map{"data": items})
}
