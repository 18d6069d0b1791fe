package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/session"
)

const (
	// ContextKeySession is the gin context key of the resolved *session.Session.
	ContextKeySession = "session"
	// SessionCookie carries the session token for browser requests.
	SessionCookie = "mcu_session"
)

// ExtractToken returns the session token of the request: a Bearer
// Authorization header first, then the session cookie.
func ExtractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// Session resolves the request's session through gate and stores it in the
// gin context. Requests without a valid token continue unauthenticated.
func Session(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := gate.Lookup(ExtractToken(c)); s != nil {
			c.Set(ContextKeySession, s)
		}
		c.Next()
	}
}

// CurrentSession returns the session resolved by Session, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	raw, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	s, _ := raw.(*session.Session)
	return s
}

// RequireSession rejects requests that have not passed the sign-in prompt,
// either as admin or as guest.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
