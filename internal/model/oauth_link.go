package model

import "time"

// OAuthLink ties a third-party provider subject to a local account.
// (provider, provider_subject) is unique.
type OAuthLink struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Provider        string    `json:"provider"`
	ProviderSubject string    `json:"provider_subject"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
}
