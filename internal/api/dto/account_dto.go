package dto

import (
	"time"

	"github.com/spec-kit/intake-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string  `json:"username" form:"username"`
	Password string  `json:"password" form:"password"`
	Email    string  `json:"email" form:"email"`
	FullName string  `json:"full_name" form:"full_name"`
	Phone    *string `json:"phone" form:"phone"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// AuthResponse is returned on a successful login.
type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Role      domain.AccountRole `json:"role"`
}

// LoginFailure is the body of a soft login failure.
type LoginFailure struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// AccountResponse is the public view of an account. It never carries the password hash.
type AccountResponse struct {
	ID        int64              `json:"id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	FullName  string             `json:"full_name"`
	Phone     *string            `json:"phone"`
	Role      domain.AccountRole `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewAccountResponse maps an account to its public view.
func NewAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FullName:  account.FullName,
		Phone:     account.Phone,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
	}
}
