package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/model"
)

// AuthUser is the resolved identity of an authenticated request.
type AuthUser struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Username   string           `json:"username"`
	SystemRole model.SystemRole `json:"system_role"`
	CreatedAt  time.Time        `json:"created_at"`
	Role       RoleView         `json:"role"`
}

// SessionService issues, validates, and revokes opaque sessions.
// Token lifecycle: absent -> issued -> valid -> expired or revoked.
type SessionService struct {
	db     DB
	ttl    time.Duration
	logger zerolog.Logger
}

func NewSessionService(db DB, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{db: db, ttl: ttl, logger: logger}
}

// Create issues a new session for the account and returns the raw token for
// the caller to place in a cookie. The expiry is a fixed horizon from
// issuance; there is no sliding renewal.
func (s *SessionService) Create(ctx context.Context, accountID string) (rawToken string, expiresAt time.Time, err error) {
	raw, digest, err := GenerateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt = time.Now().Add(s.ttl)

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (account_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		accountID, digest, expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}

	return raw, expiresAt, nil
}

// Validate digests the presented token and resolves the owning account and its
// effective role. The session kind claimed by the cookie must match the
// account's system role: a token minted under one kind is never accepted as
// another, even with a matching digest. Every miss surfaces as the same
// opaque ErrNoSession; only internal logs distinguish causes.
func (s *SessionService) Validate(ctx context.Context, rawToken string, claimedKind model.SystemRole) (*AuthUser, error) {
	digest := DigestToken(rawToken)

	var account model.Account
	err := s.db.QueryRow(ctx,
		`SELECT u.id, u.email, u.username, u.system_role, u.created_at
		 FROM sessions s
		 JOIN accounts u ON u.id = s.account_id
		 WHERE s.token_hash = $1 AND u.system_role = $2 AND s.expires_at > now()`,
		digest, claimedKind,
	).Scan(&account.ID, &account.Email, &account.Username, &account.SystemRole, &account.CreatedAt)
	if err != nil {
		s.logger.Debug().Err(err).Msg("session lookup miss")
		return nil, ErrNoSession
	}

	role, err := ResolveRole(ctx, s.db, &account)
	if err != nil {
		return nil, err
	}

	return &AuthUser{
		ID:         account.ID,
		Email:      account.Email,
		Username:   account.Username,
		SystemRole: account.SystemRole,
		CreatedAt:  account.CreatedAt,
		Role:       role,
	}, nil
}

// Invalidate revokes the single session matching the presented token.
// Concurrent sessions for the same account are untouched.
func (s *SessionService) Invalidate(ctx context.Context, rawToken string) error {
	digest := DigestToken(rawToken)
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, digest); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry. Expired sessions are
// already invalid on lookup; this just keeps the table from growing.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
