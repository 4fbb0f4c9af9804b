package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilohana/platform/internal/api/middleware"
	"github.com/kilohana/platform/internal/api/response"
	"github.com/kilohana/platform/internal/core"
)

type OrgHandler struct {
	orgs *core.OrgService
}

func NewOrgHandler(orgs *core.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

// List returns all organizations. Admin only, enforced by route middleware.
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"orgs": orgs})
}

// Get resolves an org by slug. Sysadmins see any org; everyone else must hold
// a membership.
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthUser(r.Context())

	org, err := h.orgs.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	if !user.Role.IsSystemAdmin() {
		if _, err := h.orgs.Membership(r.Context(), user.ID, org.ID); err != nil {
			response.WriteServiceError(w, err)
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"org": org})
}
