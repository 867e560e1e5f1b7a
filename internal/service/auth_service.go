package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

// UserStore is the user persistence used by AuthService.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	PromoteToAdmin(ctx context.Context, id string) error
}

// SessionStore keeps sessions by token.
type SessionStore interface {
	Save(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is returned after a successful register or login.
type AuthResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// PasswordHasher derives and checks stored password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}

// AuthService handles accounts and sessions.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	hasher   PasswordHasher
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService constructs an AuthService issuing sessions that live for ttl.
func NewAuthService(users UserStore, sessions SessionStore, hasher PasswordHasher, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, in Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)

	var errs utils.ValidationErrors
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		errs.Add("username", fmt.Sprintf("username must be %d-%d characters", minUsernameLen, maxUsernameLen))
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		errs.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: sess}, nil
}

// Login verifies credentials and opens a session. Unknown usernames and wrong
// passwords fail with the same utils.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, utils.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// keep timing in line with a wrong password
			s.hasher.Verify(in.Password, auth.PlaceholderHash)
			log.Warn().Str("username", username).Msg("Login failed: unknown user")
			return nil, utils.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		log.Warn().Str("username", username).Msg("Login failed: wrong password")
		return nil, utils.ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Bool("is_admin", user.IsAdmin).Msg("Login successful")
	return &AuthResult{User: user, Session: sess}, nil
}

// Logout destroys the session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves token into a session context. Missing, unknown and
// expired tokens all yield a nil context without error.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.SessionContext, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return auth.FromSession(sess, s.now()), nil
}

// Me returns the account behind sc.
func (s *AuthService) Me(ctx context.Context, sc *auth.SessionContext) (*models.User, error) {
	if err := auth.RequireUser(sc); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, sc.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// account deleted while the session was alive
			return nil, utils.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin makes sure an administrator named username exists, creating it
// with password or promoting an existing account.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		if err := s.users.PromoteToAdmin(ctx, user.ID); err != nil {
			return fmt.Errorf("promote %s: %w", username, err)
		}
		log.Info().Str("username", username).Msg("Existing user promoted to admin")
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{Username: username, PasswordHash: hash, IsAdmin: true}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin %s: %w", username, err)
	}
	log.Info().Str("username", username).Msg("Admin account created")
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*models.Session, error) {
	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	sess := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
