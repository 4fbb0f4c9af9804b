package request

import (
	"net/http"
	"strings"
)

// ClientOrigin resolves the best-effort network origin of a request. Proxy
// headers are checked in order of reliability: the CDN header first, then the
// first hop of X-Forwarded-For, then X-Real-IP. Returns "" when none resolve;
// callers skip the origin axis in that case rather than failing.
func ClientOrigin(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may list "client, proxy1, proxy2"; the first entry
		// is the original client.
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	return ""
}

// UserAgent returns the request's User-Agent header, empty if absent.
func UserAgent(r *http.Request) string {
	return r.Header.Get("User-Agent")
}
