package model

import "time"

// RegistrationIdentifier is the reserved identifier value that marks
// registration rows in the shared login_attempts audit table.
const RegistrationIdentifier = "REGISTRATION"

// LoginAttempt is an append-only audit record consumed by the rate limiter.
// Rows are inserted, aged out by window queries, or deleted on successful login.
type LoginAttempt struct {
	ID           int64     `json:"id"`
	Origin       string    `json:"origin,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Identifier   string    `json:"identifier"`
	Successful   bool      `json:"successful"`
	ErrorMessage string    `json:"error_message,omitempty"`
	AttemptedAt  time.Time `json:"attempted_at"`
}
