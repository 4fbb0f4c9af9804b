package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/api/cookie"
	"github.com/kilohana/platform/internal/api/response"
	"github.com/kilohana/platform/internal/core"
)

type OAuthHandler struct {
	flow     core.OAuthFlow
	sessions *core.SessionService
	baseURL  string
	secure   bool
	logger   zerolog.Logger
}

func NewOAuthHandler(flow core.OAuthFlow, sessions *core.SessionService, baseURL string, secure bool, logger zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{
		flow:     flow,
		sessions: sessions,
		baseURL:  baseURL,
		secure:   secure,
		logger:   logger,
	}
}

// Authorize starts the provider handshake: state and verifier go into
// short-lived cookies, the caller is redirected to the provider.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	state, verifier, authURL, err := h.flow.Start()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to start oauth flow")
		response.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	store := cookie.NewHTTPStore(w, r, h.secure)
	cookie.SetHandshake(store, state, verifier)

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the handshake. Validation is strictly ordered: request
// parameters first, then the state check, then the verifier, and only then the
// provider exchange. Handshake cookies are single-use and cleared before the
// exchange runs. All failures collapse into one opaque redirect.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	store := cookie.NewHTTPStore(w, r, h.secure)

	if code == "" || state == "" {
		h.logger.Warn().Msg("oauth callback missing code or state")
		h.failRedirect(w, r)
		return
	}

	cookieState, verifier, stateOK, verifierOK := cookie.GetHandshake(store)
	if !stateOK || cookieState != state {
		h.logger.Warn().Msg("oauth state mismatch")
		h.failRedirect(w, r)
		return
	}
	if !verifierOK {
		h.logger.Warn().Msg("oauth verifier cookie missing")
		h.failRedirect(w, r)
		return
	}

	cookie.DeleteHandshake(store)

	profile, err := h.flow.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth code exchange failed")
		h.failRedirect(w, r)
		return
	}

	account, err := h.flow.ResolveAccount(r.Context(), profile)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve oauth account")
		h.failRedirect(w, r)
		return
	}

	token, expiresAt, err := h.sessions.Create(r.Context(), account.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session after oauth login")
		h.failRedirect(w, r)
		return
	}

	cookie.SetSession(store, account.SystemRole, token, expiresAt)

	http.Redirect(w, r, h.baseURL, http.StatusFound)
}

func (h *OAuthHandler) failRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.baseURL+"?error=oauth_failed", http.StatusFound)
}
