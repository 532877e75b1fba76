package middleware

import (
	"net/http"
	"strings"

	"portfoliovault/internal/auth"
	"portfoliovault/pkg/logger"
)

// AuthMiddleware attaches the caller's admin flag to the request context.
// It never rejects: requests without a valid token are plain viewers.
func AuthMiddleware(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flag := gate.FromToken(tokenFromRequest(r))
			next.ServeHTTP(w, r.WithContext(auth.WithFlag(r.Context(), flag)))
		})
	}
}

// tokenFromRequest looks at the session cookie, then the query string (the
// browser's WebSocket API can't set headers), then the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(auth.SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// RequireAdmin rejects requests that are not in admin mode. It must run
// inside AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			logger.Sugar.Debugf("Rejected non-admin %s %s", r.Method, r.URL.Path)
			http.Error(w, "Unauthorized: admin mode required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
