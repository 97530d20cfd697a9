package domain

import "time"

// Identity is the set of claims embedded in a bearer token.
type Identity struct {
	AccountID int64
	Username  string
	Role      AccountRole
}

// Token represents issued bearer token metadata.
type Token struct {
	Value     string
	Identity  Identity
	ExpiresAt time.Time
}
