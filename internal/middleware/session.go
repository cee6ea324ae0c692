package middleware

import (
	"context"
	"net/http"

	"accidentwatch/internal/service/session"
)

// SessionCookie holds the browser session identifier.
const SessionCookie = "aw_session"

type sessionKey struct{}

// SessionMiddleware attaches the caller's session to the request context,
// creating one and setting the cookie when the request has none.
func SessionMiddleware(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				id = cookie.Value
			}

			sess, created := store.GetOrCreate(id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session attached by SessionMiddleware, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}
