package core

import "net/http"

// Error is a coded error that is safe to surface at the HTTP boundary.
// Everything else stays internal and maps to a generic 500.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Authorization failures are deliberately uniform: callers can never tell an
// expired session from a missing one, or a wrong password from an unknown
// identifier.
var (
	ErrNoSession          = &Error{Code: "NO_SESSION", Status: http.StatusUnauthorized, Message: "No session found. Please log in."}
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Status: http.StatusUnauthorized, Message: "Invalid credentials. Please try again."}
	ErrTooManyRequests    = &Error{Code: "TOO_MANY_REQUESTS", Status: http.StatusTooManyRequests, Message: "Too many requests. Please try again later."}

	ErrAdminRequired      = &Error{Code: "ADMIN_REQUIRED", Status: http.StatusForbidden, Message: "Unauthorized: Admin access required."}
	ErrMembershipRequired = &Error{Code: "MEMBERSHIP_REQUIRED", Status: http.StatusForbidden, Message: "Organization membership required."}

	ErrEmailTaken    = &Error{Code: "EMAIL_TAKEN", Status: http.StatusConflict, Message: "Email already taken."}
	ErrUsernameTaken = &Error{Code: "USERNAME_TAKEN", Status: http.StatusConflict, Message: "Username already taken."}
	ErrOrgNotFound   = &Error{Code: "ORG_NOT_FOUND", Status: http.StatusNotFound, Message: "Associated organization not found."}
)
