package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/pkg/logger"
)

const (
	// SessionCookieName holds the guest cart session.
	SessionCookieName = "cart_session_id"
	// SessionHeaderName lets non-browser clients pass the guest session.
	SessionHeaderName = "X-Session-ID"

	sessionKey contextKeyType = "session_id"
)

// SessionConfig configures guest cart sessions.
type SessionConfig struct {
	TTL    time.Duration
	Secure bool
}

// CartSession resolves the guest cart session from the cookie or header.
// Anonymous requests without one get a fresh session id, set as cookie and
// echoed in the X-Session-ID response header. Must run after OptionalAuth.
func CartSession(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeaderName)
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				sessionID = c.Value
			}

			if sessionID == "" && UserIDFromContext(r.Context()) == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(SessionHeaderName, sessionID)
			}

			if sessionID != "" {
				ctx := context.WithValue(r.Context(), sessionKey, sessionID)
				ctx = logger.WithSessionID(ctx, sessionID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionIDFromContext returns the guest cart session, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// WithSessionID stores a session in ctx. Exposed for handler tests.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}
