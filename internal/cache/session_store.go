package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/lumina_api/internal/models"
)

var errSessionExpired = errors.New("session already expired")

// SessionStore keeps sessions in Redis keyed by their opaque token.
// Keys expire with the session: session:{token}
type SessionStore struct {
	redis *RedisClient
	now   func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(redis *RedisClient) *SessionStore {
	return &SessionStore{
		redis: redis,
		now:   time.Now,
	}
}

func (s *SessionStore) key(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Save stores sess until its expiry.
func (s *SessionStore) Save(ctx context.Context, sess *models.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errSessionExpired
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(sess.Token), string(data), ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session for token, or nil if it is absent or expired.
func (s *SessionStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := s.redis.Get(ctx, s.key(token))
	if err != nil {
		if IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// Redis expiry has second granularity; enforce the exact mark here.
	if sess.Expired(s.now()) {
		_ = s.redis.Delete(ctx, s.key(token))
		return nil, nil
	}
	return &sess, nil
}

// Delete removes the session for token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.redis.Delete(ctx, s.key(token))
}
