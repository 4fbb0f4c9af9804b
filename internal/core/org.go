package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kilohana/platform/internal/model"
)

type OrgService struct {
	db DB
}

func NewOrgService(db DB) *OrgService {
	return &OrgService{db: db}
}

func (s *OrgService) GetBySlug(ctx context.Context, slug string) (*model.Org, error) {
	var o model.Org
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM orgs WHERE slug = $1`, slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get org by slug %s: %w", slug, err)
	}
	return &o, nil
}

// Membership returns the caller's membership in an org, or
// ErrMembershipRequired when no row exists. Role resolution treats a missing
// row as guest; this is for endpoints that demand membership outright.
func (s *OrgService) Membership(ctx context.Context, accountID, orgID string) (*model.Membership, error) {
	var m model.Membership
	err := s.db.QueryRow(ctx,
		`SELECT account_id, org_id, org_role, created_at FROM members
		 WHERE account_id = $1 AND org_id = $2`, accountID, orgID,
	).Scan(&m.AccountID, &m.OrgID, &m.OrgRole, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMembershipRequired
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

// List returns all orgs; sysadmin dashboards use it.
func (s *OrgService) List(ctx context.Context) ([]model.Org, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, slug, created_at FROM orgs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	defer rows.Close()

	var orgs []model.Org
	for rows.Next() {
		var o model.Org
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}
