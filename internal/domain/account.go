package domain

import "time"

// AccountRole is the single privilege flag carried by an account.
type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleStaff AccountRole = "staff"
)

// Account is a registered citizen or staff member.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
	Role         AccountRole
	CreatedAt    time.Time
}
