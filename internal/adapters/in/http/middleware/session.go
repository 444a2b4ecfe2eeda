// internal/adapters/in/http/middleware/session.go
package middleware

import (
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"atelier/internal/domain/session"
)

// FirebaseAuthClient is an alias so router deps can carry the client without
// importing the firebase package directly.
type FirebaseAuthClient = fbauth.Client

const deviceCookieName = "atelier_device_id"

// Session verifies an optional Firebase bearer token and stashes the signed-in
// identity in the request context. Requests without an Authorization header
// pass through anonymously: the cart works the same either way, it only binds
// to a different store. A present-but-invalid token is rejected so a stale
// session cannot silently fall back to the guest cart.
type Session struct {
	Auth *FirebaseAuthClient
	Log  *logrus.Logger
}

func (m *Session) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "unauthorized: malformed authorization header", http.StatusUnauthorized)
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			http.Error(w, "unauthorized: empty bearer token", http.StatusUnauthorized)
			return
		}

		if m.Auth == nil {
			http.Error(w, "session middleware not initialized", http.StatusServiceUnavailable)
			return
		}

		token, err := m.Auth.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			if m.Log != nil {
				m.Log.WithError(err).Warn("session: token verification failed")
			}
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		uid := strings.TrimSpace(token.UID)
		if uid == "" {
			http.Error(w, "invalid uid in token", http.StatusUnauthorized)
			return
		}

		email := ""
		if raw, ok := token.Claims["email"]; ok {
			if e, ok2 := raw.(string); ok2 {
				email = strings.TrimSpace(e)
			}
		}

		ctx := session.WithIdentity(r.Context(), &session.Identity{ID: uid, Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceID guarantees every request carries a stable device identifier.
// Resolution order: X-Device-Id header, then cookie; a missing identifier is
// minted and set as a long-lived cookie so the guest cart survives restarts.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Device-Id"))
		if id == "" {
			if c, err := r.Cookie(deviceCookieName); err == nil {
				id = strings.TrimSpace(c.Value)
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   60 * 60 * 24 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		// handlers read it back via DeviceIDFrom
		r.Header.Set("X-Device-Id", id)
		next.ServeHTTP(w, r)
	})
}

// DeviceIDFrom returns the device identifier resolved by the DeviceID
// middleware.
func DeviceIDFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Device-Id"))
}
