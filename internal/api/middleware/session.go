package middleware

import (
	"net/http"

	"github.com/edvin/backupdash/internal/api/response"
)

// Authenticator reports whether a session token is present.
type Authenticator interface {
	IsAuthenticated() bool
}

// RequireSession rejects requests with 401 while no session token is held.
// The dashboard holds a single backend session, so this checks presence only.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.IsAuthenticated() {
				response.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
