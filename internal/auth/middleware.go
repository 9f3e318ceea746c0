package auth

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"rbfvault/internal/models"
)

// SessionLookup reports whether the session behind a token id is live.
type SessionLookup func(jti string) bool

// DBSessions checks the sessions table for an unrevoked, unexpired row.
func DBSessions(db *gorm.DB) SessionLookup {
	return func(jti string) bool {
		var sess models.Session
		if jti == "" || db.First(&sess, "jti = ?", jti).Error != nil {
			return false
		}
		return sess.RevokedAt == nil && time.Now().Before(sess.ExpiresAt)
	}
}

func JWTAuth(db *gorm.DB) func(http.Handler) http.Handler {
	return Authenticate(DBSessions(db))
}

// Authenticate validates the bearer token and its session, then stores the
// claims in the request context.
func Authenticate(live SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if !live(claims.JWTID) {
				http.Error(w, "session expired/revoked", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
