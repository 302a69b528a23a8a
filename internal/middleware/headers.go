package middleware

import (
	"net/http"

	"github.com/capitalize-ai/messaging-platform/internal/realtime"
)

// SessionHeader names the realtime session that issued a request.
const SessionHeader = "X-Session-ID"

// SecurityHeaders sets conservative response headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// SessionOrigin records the caller's realtime session, if announced, so the
// hub does not echo the resulting events back to it. The session is tied to
// the authenticated user; it must run after Auth.
func SessionOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionID := r.Header.Get(SessionHeader); sessionID != "" {
			r = r.WithContext(realtime.WithOrigin(r.Context(), GetUserID(r.Context()), sessionID))
		}
		next.ServeHTTP(w, r)
	})
}
