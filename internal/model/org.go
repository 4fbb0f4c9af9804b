package model

import "time"

type Org struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// Membership ties an account to an org with an org-scoped role.
// At most one row exists per (account, org) pair.
type Membership struct {
	AccountID string    `json:"account_id"`
	OrgID     string    `json:"org_id"`
	OrgRole   OrgRole   `json:"org_role"`
	CreatedAt time.Time `json:"created_at"`
}
