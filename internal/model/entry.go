package model

import "time"

// Entry is a single kilo observation recorded by an account.
type Entry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Q1        string    `json:"q1"`
	Q2        *string   `json:"q2"`
	Q3        *string   `json:"q3"`
	Location  *string   `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}
