package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/hookcase/internal/ids"
	"github.com/eldtechnologies/hookcase/internal/session"
	"github.com/eldtechnologies/hookcase/internal/theme"
)

// SessionCookie names the cookie carrying the anonymous session ID.
const SessionCookie = "hookcase_session"

const sessionMaxAge = 30 * 24 * time.Hour

// ThemeSource returns the theme provider of a session.
type ThemeSource func(sessionID string) *theme.Provider

// Session attaches a session ID to every request, issuing a cookie when the
// client has none or sends a malformed one; such requests are marked with
// session.WithIssued. The session's theme provider is placed in the request
// context and created only if a handler reads it.
func Session(themes ThemeSource, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = ids.NewUUIDv7().String()
				ctx = session.WithIssued(ctx)
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = session.WithID(ctx, id)
			if themes != nil {
				ctx = theme.WithSource(ctx, func() *theme.Provider { return themes(id) })
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
