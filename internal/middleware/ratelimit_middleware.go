package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/utils"
)

const (
	maxFailedAttempts = 5
	attemptWindow     = time.Minute
)

// FailedLoginLimiter counts failed sign-in attempts per IP.
// Limit: 5 failures per minute
type FailedLoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewFailedLoginLimiter creates a limiter whose stale entries are purged
// until ctx is done.
func NewFailedLoginLimiter(ctx context.Context) *FailedLoginLimiter {
	rl := &FailedLoginLimiter{
		attempts: make(map[string]*attemptInfo),
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// Blocked reports whether ip used up its attempts for the current window.
func (r *FailedLoginLimiter) Blocked(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.attempts[ip]
	if !exists || r.now().Sub(info.firstAt) > attemptWindow {
		return false
	}
	return info.count >= maxFailedAttempts
}

// Fail records a failed attempt from ip.
func (r *FailedLoginLimiter) Fail(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	// Reset if window expired
	if !exists || now.Sub(info.firstAt) > attemptWindow {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return
	}
	info.count++
}

// Reset forgets the failures of ip after a successful sign-in.
func (r *FailedLoginLimiter) Reset(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, ip)
}

// Guard rejects blocked IPs with 429 and counts 401 responses as failures.
func (r *FailedLoginLimiter) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if r.Blocked(ip) {
			log.Warn().Str("ip", ip).Msg("Too many failed login attempts")
			utils.Error(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many failed login attempts, try again later")
			c.Abort()
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			r.Fail(ip)
		case http.StatusOK, http.StatusCreated:
			r.Reset(ip)
		}
	}
}

func (r *FailedLoginLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > attemptWindow {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
