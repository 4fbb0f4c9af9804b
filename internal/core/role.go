package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kilohana/platform/internal/model"
)

type RoleKind string

const (
	RoleKindSystemAdmin RoleKind = "sysadmin"
	RoleKindOrg         RoleKind = "org"
	RoleKindGuest       RoleKind = "guest"
)

// RoleView is the resolved effective role of an account. Exactly one of the
// three kinds applies: sysadmin accounts are never resolved through
// membership, org members carry their org-scoped role, and accounts without a
// membership row are guests.
type RoleView struct {
	Kind    RoleKind      `json:"kind"`
	OrgID   string        `json:"org_id,omitempty"`
	OrgRole model.OrgRole `json:"org_role,omitempty"`
}

func (r RoleView) IsSystemAdmin() bool { return r.Kind == RoleKindSystemAdmin }
func (r RoleView) IsOrgAdmin() bool    { return r.Kind == RoleKindOrg && r.OrgRole == model.OrgRoleAdmin }

// ResolveRole computes the effective role for an account. This is the single
// role-resolution path; session validation and OAuth issuance both go through
// it.
func ResolveRole(ctx context.Context, db DB, account *model.Account) (RoleView, error) {
	if account.SystemRole == model.SystemRoleSysadmin {
		return RoleView{Kind: RoleKindSystemAdmin}, nil
	}

	var orgID string
	var orgRole model.OrgRole
	err := db.QueryRow(ctx,
		`SELECT org_id, org_role FROM members WHERE account_id = $1`, account.ID,
	).Scan(&orgID, &orgRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return RoleView{Kind: RoleKindGuest}, nil
	}
	if err != nil {
		return RoleView{}, fmt.Errorf("resolve role for account %s: %w", account.ID, err)
	}

	return RoleView{Kind: RoleKindOrg, OrgID: orgID, OrgRole: orgRole}, nil
}
