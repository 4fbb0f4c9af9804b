package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kilohana/platform/internal/model"
)

type AccountService struct {
	db     DB
	hasher *PasswordHasher
}

func NewAccountService(db DB, hasher *PasswordHasher) *AccountService {
	return &AccountService{db: db, hasher: hasher}
}

// Login authenticates by email or username. Every failure path collapses to
// ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, email, username, password_hash, system_role, created_at
		 FROM accounts WHERE email = $1 OR username = $1`, identifier,
	).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.SystemRole, &a.CreatedAt)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !a.HasPassword() {
		// OAuth-only account; indistinguishable from a bad password outward.
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return &a, nil
}

// Register creates an account and, when an org is given, its membership row.
func (s *AccountService) Register(ctx context.Context, email, username, password, orgID string) (*model.Account, error) {
	var existing string
	err := s.db.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1`, email).Scan(&existing)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT id FROM accounts WHERE username = $1`, username).Scan(&existing)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	if orgID != "" {
		var id string
		err = s.db.QueryRow(ctx, `SELECT id FROM orgs WHERE id = $1`, orgID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check org: %w", err)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	a := model.Account{
		ID:         uuid.New().String(),
		Email:      email,
		Username:   username,
		SystemRole: model.SystemRoleUser,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, system_role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		a.ID, a.Email, a.Username, hash, a.SystemRole,
	).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	if orgID != "" {
		_, err = s.db.Exec(ctx,
			`INSERT INTO members (account_id, org_id, org_role) VALUES ($1, $2, $3)`,
			a.ID, orgID, model.OrgRoleMember)
		if err != nil {
			return nil, fmt.Errorf("insert membership: %w", err)
		}
	}

	return &a, nil
}

// GetByID loads an account without its password hash.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, email, username, system_role, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Username, &a.SystemRole, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &a, nil
}
