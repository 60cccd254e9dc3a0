package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// SessionCookie holds the admin token for browser sessions.
const SessionCookie = "admin_session"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// TokenVerifier is satisfied by services.AdminService.
type TokenVerifier interface {
	VerifyToken(token string) (jwt.MapClaims, error)
}

// RequireAdmin пропускает запрос только с валидным админским токеном
// (заголовок Authorization: Bearer или cookie admin_session) и отвечает 401 JSON.
func RequireAdmin(verifier TokenVerifier) func(http.Handler) http.Handler {
	return requireAdmin(verifier, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "admin authentication required"})
	})
}

// RequireAdminPage - то же для HTML-страниц: без сессии редирект на /login.
func RequireAdminPage(verifier TokenVerifier) func(http.Handler) http.Handler {
	return requireAdmin(verifier, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}

func requireAdmin(verifier TokenVerifier, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.VerifyToken(TokenFromRequest(r))
			if err != nil {
				deny(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest prefers the bearer header over the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
