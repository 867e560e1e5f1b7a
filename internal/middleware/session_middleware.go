package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const sessionKey = "session"

// Authenticator resolves session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.SessionContext, error)
}

// SessionMiddleware attaches the caller's session, if any, to every request.
type SessionMiddleware struct {
	authenticator Authenticator
	cookieName    string
}

// NewSessionMiddleware constructs a new SessionMiddleware.
func NewSessionMiddleware(authenticator Authenticator, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{authenticator: authenticator, cookieName: cookieName}
}

// Handle resolves the token from the session cookie or an
// "Authorization: Bearer" header. Requests without a valid session continue
// anonymously; route guards decide whether that is allowed.
func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.Token(c)
		if token == "" {
			c.Next()
			return
		}

		sc, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to resolve session")
		}
		if sc != nil {
			c.Set(sessionKey, sc)
		}
		c.Next()
	}
}

// Token returns the raw session token sent with the request.
func (m *SessionMiddleware) Token(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(m.cookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireUser(GetSession(c)); err != nil {
			abortAuth(c, err)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireAdmin(GetSession(c)); err != nil {
			abortAuth(c, err)
			return
		}
		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrForbidden) {
		utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	} else {
		utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	c.Abort()
}

// GetSession returns the authenticated session from context, or nil.
func GetSession(c *gin.Context) *auth.SessionContext {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sc, _ := v.(*auth.SessionContext)
	return sc
}
