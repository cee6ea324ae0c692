package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"accidentwatch/internal/config"
)

// AuthCookie marks a browser that has entered the password.
const AuthCookie = "authenticated"

// AuthToken returns the cookie value issued after a successful login. It is
// derived from the password, so changing the password logs everyone out.
func AuthToken(password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte("accidentwatch login"))
	return hex.EncodeToString(mac.Sum(nil))
}

// AuthMiddleware checks that the user is logged in (carries the AuthToken cookie).
// With no password configured every request is allowed.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Password == "" {
			return next
		}
		token := []byte(AuthToken(cfg.Password))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// Allow the login page, the login endpoint and static assets without authentication
			if r.URL.Path == "/login" ||
				r.URL.Path == "/auth/login" ||
				strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(AuthCookie)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), token) != 1 {
				// API and websocket callers get 401, pages are redirected to the login form
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
