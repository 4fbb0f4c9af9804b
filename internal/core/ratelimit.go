package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/model"
)

// RateLimitConfig holds the throttling thresholds, built once at startup.
type RateLimitConfig struct {
	LoginMaxAttempts        int
	LoginWindow             time.Duration
	RegistrationMaxAttempts int
	RegistrationWindow      time.Duration
}

// RateLimitService counts recent failed attempts in the login_attempts audit
// table and raises ErrTooManyRequests when a cap is hit. Audit inserts are
// best-effort: a failed insert is logged and never blocks the auth flow.
type RateLimitService struct {
	db     DB
	cfg    RateLimitConfig
	logger zerolog.Logger
}

func NewRateLimitService(db DB, cfg RateLimitConfig, logger zerolog.Logger) *RateLimitService {
	return &RateLimitService{db: db, cfg: cfg, logger: logger}
}

// CheckLogin throttles on failed attempts within the window where either the
// identifier or the origin matches; either axis hitting the cap throttles.
// Runs before credential verification so throttled requests never cost a hash.
// When the origin is unresolvable only the identifier axis is checked.
func (s *RateLimitService) CheckLogin(ctx context.Context, origin, identifier string) error {
	since := time.Now().Add(-s.cfg.LoginWindow)

	var count int
	var err error
	if origin != "" {
		err = s.db.QueryRow(ctx,
			`SELECT count(*) FROM login_attempts
			 WHERE successful = false AND attempted_at >= $1 AND (identifier = $2 OR origin = $3)`,
			since, identifier, origin,
		).Scan(&count)
	} else {
		err = s.db.QueryRow(ctx,
			`SELECT count(*) FROM login_attempts
			 WHERE successful = false AND attempted_at >= $1 AND identifier = $2`,
			since, identifier,
		).Scan(&count)
	}
	if err != nil {
		return err
	}

	s.logger.Debug().Str("identifier", identifier).Int("failed_attempts", count).Msg("login rate limit check")

	if count >= s.cfg.LoginMaxAttempts {
		return ErrTooManyRequests
	}
	return nil
}

// CheckRegistration throttles registrations per origin. With no resolvable
// origin there is nothing to anchor the check on, so it warns and allows.
func (s *RateLimitService) CheckRegistration(ctx context.Context, origin string) error {
	if origin == "" {
		s.logger.Warn().Msg("no origin available for registration rate limit check")
		return nil
	}

	since := time.Now().Add(-s.cfg.RegistrationWindow)

	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM login_attempts
		 WHERE attempted_at >= $1 AND identifier = $2 AND origin = $3`,
		since, model.RegistrationIdentifier, origin,
	).Scan(&count)
	if err != nil {
		return err
	}

	if count >= s.cfg.RegistrationMaxAttempts {
		return ErrTooManyRequests
	}
	return nil
}

// RecordLogin appends an audit row. Best-effort only.
func (s *RateLimitService) RecordLogin(ctx context.Context, origin, userAgent, identifier string, success bool, errMsg string) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO login_attempts (origin, user_agent, identifier, successful, error_message)
		 VALUES (nullif($1, ''), nullif($2, ''), $3, $4, nullif($5, ''))`,
		origin, userAgent, identifier, success, errMsg)
	if err != nil {
		s.logger.Error().Err(err).Str("identifier", identifier).Msg("failed to record login attempt")
	}
}

// RecordRegistration appends an audit row under the reserved registration
// identifier. Best-effort only.
func (s *RateLimitService) RecordRegistration(ctx context.Context, origin, userAgent string, success bool, errMsg string) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO login_attempts (origin, user_agent, identifier, successful, error_message)
		 VALUES (nullif($1, ''), nullif($2, ''), $3, $4, nullif($5, ''))`,
		origin, userAgent, model.RegistrationIdentifier, success, errMsg)
	if err != nil {
		s.logger.Error().Err(err).Str("origin", origin).Msg("failed to record registration attempt")
	}
}

// ClearFailed deletes failed rows on the identifier or origin axes after a
// successful login. The lockout window is sliding and self-healing; there is
// no explicit unlock.
func (s *RateLimitService) ClearFailed(ctx context.Context, origin, identifier string) error {
	var err error
	if origin != "" {
		_, err = s.db.Exec(ctx,
			`DELETE FROM login_attempts WHERE successful = false AND (identifier = $1 OR origin = $2)`,
			identifier, origin)
	} else {
		_, err = s.db.Exec(ctx,
			`DELETE FROM login_attempts WHERE successful = false AND identifier = $1`,
			identifier)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("identifier", identifier).Msg("failed to clear login attempts")
	}
	return err
}
