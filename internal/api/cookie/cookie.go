package cookie

import (
	"net/http"
	"time"

	"github.com/kilohana/platform/internal/model"
)

const (
	adminSessionName = "admin_session"
	userSessionName  = "user_session"

	oauthStateName    = "oauth_state"
	oauthVerifierName = "oauth_code_verifier"

	// Handshake cookies live just long enough to complete the provider
	// round-trip.
	handshakeTTL = 10 * time.Minute
)

// Store is the capability the session layer needs from its caller: read,
// write, and delete named cookies. The HTTP request/response pair implements
// it; other rendering contexts can supply their own.
type Store interface {
	Get(name string) (string, bool)
	Set(name, value string, expiresAt time.Time)
	Delete(name string)
}

// SessionCookie is the token presented by the client plus the session kind the
// cookie name claims it was minted under.
type SessionCookie struct {
	Kind  model.SystemRole
	Token string
}

// httpStore adapts an http request/response pair to Store.
type httpStore struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool
}

// NewHTTPStore wraps a request/response pair. secure controls the Secure flag
// on written cookies and should be true outside local development.
func NewHTTPStore(w http.ResponseWriter, r *http.Request, secure bool) Store {
	return &httpStore{r: r, w: w, secure: secure}
}

func (s *httpStore) Get(name string) (string, bool) {
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s *httpStore) Set(name, value string, expiresAt time.Time) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
		Expires:  expiresAt,
		Path:     "/",
	})
}

func (s *httpStore) Delete(name string) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
		MaxAge:   -1,
		Path:     "/",
	})
}

// GetSession returns the presented session token. When both cookies are
// present the admin session takes precedence.
func GetSession(store Store) (*SessionCookie, bool) {
	if v, ok := store.Get(adminSessionName); ok {
		return &SessionCookie{Kind: model.SystemRoleSysadmin, Token: v}, true
	}
	if v, ok := store.Get(userSessionName); ok {
		return &SessionCookie{Kind: model.SystemRoleUser, Token: v}, true
	}
	return nil, false
}

// SetSession writes the session cookie for the given kind; expiry matches the
// session row.
func SetSession(store Store, kind model.SystemRole, rawToken string, expiresAt time.Time) {
	store.Set(sessionName(kind), rawToken, expiresAt)
}

func DeleteSession(store Store, kind model.SystemRole) {
	store.Delete(sessionName(kind))
}

func sessionName(kind model.SystemRole) string {
	if kind == model.SystemRoleSysadmin {
		return adminSessionName
	}
	return userSessionName
}

// SetHandshake stores the OAuth CSRF state and PKCE verifier for the duration
// of the provider round-trip.
func SetHandshake(store Store, state, verifier string) {
	expires := time.Now().Add(handshakeTTL)
	store.Set(oauthStateName, state, expires)
	store.Set(oauthVerifierName, verifier, expires)
}

// GetHandshake reads the handshake cookies; either may be absent.
func GetHandshake(store Store) (state, verifier string, stateOK, verifierOK bool) {
	state, stateOK = store.Get(oauthStateName)
	verifier, verifierOK = store.Get(oauthVerifierName)
	return state, verifier, stateOK, verifierOK
}

// DeleteHandshake removes both handshake cookies. They are single-use and are
// cleared on the first callback regardless of outcome.
func DeleteHandshake(store Store) {
	store.Delete(oauthStateName)
	store.Delete(oauthVerifierName)
}
