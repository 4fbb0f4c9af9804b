package middleware

import (
	"context"
	"net/http"

	"github.com/kilohana/platform/internal/api/cookie"
	"github.com/kilohana/platform/internal/api/response"
	"github.com/kilohana/platform/internal/core"
)

type contextKey string

const authUserKey contextKey = "authUser"

// SessionAuth resolves the session cookie to an account and stores the result
// on the request context. Resolution runs at most once per request; handlers
// and nested middleware read the memoized value via GetAuthUser. Requests
// without a valid session pass through unauthenticated.
func SessionAuth(sessions *core.SessionService, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := cookie.NewHTTPStore(w, r, secure)
			sc, ok := cookie.GetSession(store)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.Validate(r.Context(), sc.Token, sc.Kind)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
		})
	}
}

// GetAuthUser returns the authenticated user resolved by SessionAuth, or nil
// when the request carries no valid session.
func GetAuthUser(ctx context.Context) *core.AuthUser {
	user, _ := ctx.Value(authUserKey).(*core.AuthUser)
	return user
}

// WithAuthUser returns a context carrying the given user, as SessionAuth would
// produce it.
func WithAuthUser(ctx context.Context, user *core.AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey, user)
}

// RequireAuth rejects unauthenticated requests with the uniform no-session
// error.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthUser(r.Context()) == nil {
			response.WriteServiceError(w, core.ErrNoSession)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose account is not a system administrator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if user == nil {
			response.WriteServiceError(w, core.ErrNoSession)
			return
		}
		if !user.Role.IsSystemAdmin() {
			response.WriteServiceError(w, core.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
