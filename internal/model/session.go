package model

import "time"

// Session stores the digest of an issued bearer token. The raw token is
// never persisted; a session is valid while expires_at is in the future.
type Session struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
