package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/api/cookie"
	"github.com/kilohana/platform/internal/api/middleware"
	"github.com/kilohana/platform/internal/api/request"
	"github.com/kilohana/platform/internal/api/response"
	"github.com/kilohana/platform/internal/core"
)

type AuthHandler struct {
	accounts  *core.AccountService
	sessions  *core.SessionService
	rateLimit *core.RateLimitService
	secure    bool
	logger    zerolog.Logger
}

func NewAuthHandler(services *core.Services, secure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:  services.Account,
		sessions:  services.Session,
		rateLimit: services.RateLimit,
		secure:    secure,
		logger:    logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	OrgID    string `json:"org_id" validate:"omitempty,uuid"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	origin := request.ClientOrigin(r)
	userAgent := request.UserAgent(r)

	if err := h.rateLimit.CheckRegistration(r.Context(), origin); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Email, req.Username, req.Password, req.OrgID)
	if err != nil {
		h.rateLimit.RecordRegistration(r.Context(), origin, userAgent, false, err.Error())
		response.WriteServiceError(w, err)
		return
	}
	h.rateLimit.RecordRegistration(r.Context(), origin, userAgent, true, "")

	token, expiresAt, err := h.sessions.Create(r.Context(), account.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session after registration")
		response.WriteServiceError(w, err)
		return
	}

	store := cookie.NewHTTPStore(w, r, h.secure)
	cookie.SetSession(store, account.SystemRole, token, expiresAt)

	response.WriteJSON(w, http.StatusCreated, map[string]any{"user": account})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	origin := request.ClientOrigin(r)
	userAgent := request.UserAgent(r)

	// Throttle before touching credentials so a locked-out caller never
	// triggers a hash computation.
	if err := h.rateLimit.CheckLogin(r.Context(), origin, req.Identifier); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	account, err := h.accounts.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.rateLimit.RecordLogin(r.Context(), origin, userAgent, req.Identifier, false, err.Error())
		response.WriteServiceError(w, err)
		return
	}

	h.rateLimit.RecordLogin(r.Context(), origin, userAgent, req.Identifier, true, "")
	h.rateLimit.ClearFailed(r.Context(), origin, req.Identifier)

	token, expiresAt, err := h.sessions.Create(r.Context(), account.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session after login")
		response.WriteServiceError(w, err)
		return
	}

	store := cookie.NewHTTPStore(w, r, h.secure)
	cookie.SetSession(store, account.SystemRole, token, expiresAt)

	response.WriteJSON(w, http.StatusOK, map[string]any{"user": account})
}

// Logout revokes the presented session and clears its cookie. A request
// carrying no session cookie has nothing to revoke and is rejected.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := cookie.NewHTTPStore(w, r, h.secure)
	sc, ok := cookie.GetSession(store)
	if !ok {
		response.WriteServiceError(w, core.ErrNoSession)
		return
	}

	if err := h.sessions.Invalidate(r.Context(), sc.Token); err != nil {
		h.logger.Error().Err(err).Msg("failed to invalidate session")
	}
	cookie.DeleteSession(store, sc.Kind)

	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Session returns the authenticated caller, resolved by the auth middleware.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthUser(r.Context())
	if user == nil {
		response.WriteServiceError(w, core.ErrNoSession)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}
