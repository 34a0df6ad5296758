package middleware

import (
	"errors"
	"net/http"
	"strings"

	token "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/implementation/token"
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"

	"github.com/gin-gonic/gin"
)

// Keys under which the middleware stores request identity in the gin context.
const (
	UserIDContextKey       = "user_id"
	SessionTokenContextKey = "session_token"
)

// SessionMiddleware authenticates requests against the session store and
// gates internal and administrative routes.
type SessionMiddleware struct {
	sessions *session.Authenticator
	acl      *access.Store
	tokens   *token.Service
}

// NewSessionMiddleware creates the middleware.
func NewSessionMiddleware(sessions *session.Authenticator, acl *access.Store, tokens *token.Service) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		acl:      acl,
		tokens:   tokens,
	}
}

// ExtractToken gets a session token from the Authorization header (with or
// without the Bearer prefix) or the token query parameter. The query
// parameter exists for WebSocket clients that cannot set headers.
func ExtractToken(r *http.Request) string {
	if tok := r.Header.Get("Authorization"); tok != "" {
		return strings.TrimPrefix(tok, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Authenticate verifies the session token and stores the resolved user in
// the request context.
func (m *SessionMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ExtractToken(c.Request)
		userID, err := m.sessions.Validate(tok)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
			c.Abort()
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Set(SessionTokenContextKey, tok)
		c.Next()
	}
}

// RequireAdmin ensures the authenticated user holds the administrative
// capability. Must run after Authenticate.
func (m *SessionMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := UserFromContext(c)
		if err != nil || !m.acl.IsAdmin(userID) {
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireInternalToken gates ingest routes behind the shared-secret service
// token.
func (m *SessionMiddleware) RequireInternalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ExtractToken(c.Request)
		if tok == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
			c.Abort()
			return
		}
		if _, err := m.tokens.Validate(tok); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext retrieves the authenticated user ID from the gin context.
func UserFromContext(c *gin.Context) (string, error) {
	val, exists := c.Get(UserIDContextKey)
	if !exists {
		return "", errors.New("user not found in context")
	}
	userID, ok := val.(string)
	if !ok || userID == "" {
		return "", errors.New("invalid user ID in context")
	}
	return userID, nil
}

// TokenFromContext retrieves the raw session token from the gin context.
func TokenFromContext(c *gin.Context) string {
	val, exists := c.Get(SessionTokenContextKey)
	if !exists {
		return ""
	}
	tok, _ := val.(string)
	return tok
}
