package core

import (
	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/config"
)

type Services struct {
	Account   *AccountService
	Session   *SessionService
	RateLimit *RateLimitService
	OAuth     *OAuthService
	Org       *OrgService
	Entry     *EntryService
}

func NewServices(db DB, cfg *config.Config, logger zerolog.Logger) *Services {
	hasher := NewPasswordHasher(cfg.PasswordPepper)
	return &Services{
		Account: NewAccountService(db, hasher),
		Session: NewSessionService(db, cfg.SessionTTL, logger),
		RateLimit: NewRateLimitService(db, RateLimitConfig{
			LoginMaxAttempts:        cfg.LoginMaxAttempts,
			LoginWindow:             cfg.LoginWindow,
			RegistrationMaxAttempts: cfg.RegistrationMaxAttempts,
			RegistrationWindow:      cfg.RegistrationWindow,
		}, logger),
		OAuth: NewOAuthService(db, cfg.OAuth, logger),
		Org:   NewOrgService(db),
		Entry: NewEntryService(db),
	}
}
