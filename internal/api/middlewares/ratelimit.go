package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/models"
)

// RateLimiter is a per-client token bucket. Each client may spend up to
// burst requests at once, refilled at rate requests per minute.
type RateLimiter struct {
	visitors map[string]*Visitor
	mutex    sync.Mutex
	rate     float64
	burst    float64
	cleanup  time.Duration
	now      func() time.Time
}

type Visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter. Idle visitors are forgotten
// until ctx is cancelled.
func NewRateLimiter(ctx context.Context, rate, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 100
	}
	if burst < 1 {
		burst = rate
	}

	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     float64(rate),
		burst:    float64(burst),
		cleanup:  time.Minute * 10,
		now:      time.Now,
	}

	go rl.cleanupExpiredVisitors(ctx)
	return rl
}

// RateLimit middleware rejects clients that exhausted their budget
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
				models.ErrCodeRateLimitExceeded,
				"Rate limit exceeded. Please try again later.",
				"",
			))
			return
		}

		c.Next()
	}
}

// Allow spends one token of the client's budget.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	visitor, exists := rl.visitors[ip]
	if !exists {
		visitor = &Visitor{tokens: rl.burst, lastSeen: now}
		rl.visitors[ip] = visitor
	}

	elapsed := now.Sub(visitor.lastSeen)
	visitor.lastSeen = now
	visitor.tokens += elapsed.Minutes() * rl.rate
	if visitor.tokens > rl.burst {
		visitor.tokens = rl.burst
	}

	if visitor.tokens < 1 {
		return false
	}

	visitor.tokens--
	return true
}

func (rl *RateLimiter) cleanupExpiredVisitors(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for ip, visitor := range rl.visitors {
		if now.Sub(visitor.lastSeen) > rl.cleanup {
			delete(rl.visitors, ip)
		}
	}
}
