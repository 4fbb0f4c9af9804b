package model

import "time"

type SystemRole string

const (
	SystemRoleSysadmin SystemRole = "sysadmin"
	SystemRoleUser     SystemRole = "user"
)

type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	SystemRole   SystemRole `json:"system_role"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasPassword reports whether the account can authenticate with credentials.
// OAuth-only accounts carry an empty hash.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}
