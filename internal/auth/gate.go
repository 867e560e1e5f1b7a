// Package auth holds the session authorization gate and password hashing.
package auth

import (
	"time"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// SessionContext is the identity resolved from a valid session token.
// A nil *SessionContext means the request is anonymous.
type SessionContext struct {
	Token     string
	UserID    string
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

// FromSession resolves s at now. Missing or expired sessions yield nil.
func FromSession(s *models.Session, now time.Time) *SessionContext {
	if s == nil || s.Expired(now) {
		return nil
	}
	return &SessionContext{
		Token:     s.Token,
		UserID:    s.UserID,
		Username:  s.Username,
		IsAdmin:   s.IsAdmin,
		ExpiresAt: s.ExpiresAt,
	}
}

// RequireUser fails with ErrUnauthorized for anonymous requests.
func RequireUser(ctx *SessionContext) error {
	if ctx == nil {
		return utils.ErrUnauthorized
	}
	return nil
}

// RequireAdmin fails with ErrUnauthorized for anonymous requests and with
// ErrForbidden for signed-in non-admins.
func RequireAdmin(ctx *SessionContext) error {
	if err := RequireUser(ctx); err != nil {
		return err
	}
	if !ctx.IsAdmin {
		return utils.ErrForbidden
	}
	return nil
}
