package middleware

import (
	"net/http"
	"sync"

	"leave-expiry/internal/shared/apperror"
	"leave-expiry/internal/shared/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out one token bucket per key.
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

func (k *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	limiter, exists := k.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(k.r, k.b)
		k.limiters[key] = limiter
	}
	return limiter
}

// RateLimitByCaller limits by actor id when the caller sends one and by
// client IP otherwise.
func RateLimitByCaller(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actorID := c.GetHeader(ActorIDHeader); actorID != "" {
			key = "actor:" + actorID
		}
		if !limiter.Limiter(key).Allow() {
			response.Error(c, http.StatusTooManyRequests, apperror.CodeRateLimited, "too many requests", nil)
			return
		}
		c.Next()
	}
}
