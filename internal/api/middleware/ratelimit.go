package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	limiterTTL        = 5 * time.Minute
)

// RateLimiter hands out one token bucket per client key. Idle keys expire
// out of the LRU, so the table stays bounded.
type RateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing perMinute requests per key
// with a burst of the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, limiterTTL),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}
	return limiter.Allow()
}

// PerIP creates middleware that rate limits by client IP.
func PerIP(perMinute int) gin.HandlerFunc {
	limiter := NewRateLimiter(perMinute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// WebSocketLimiter throttles messages on one websocket connection.
type WebSocketLimiter struct {
	limiter *rate.Limiter
}

// NewWebSocketLimiter creates a limiter for messagesPerMinute.
func NewWebSocketLimiter(messagesPerMinute int) *WebSocketLimiter {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 1
	}
	return &WebSocketLimiter{
		limiter: rate.NewLimiter(rate.Limit(messagesPerMinute)/60.0, messagesPerMinute),
	}
}

// Allow checks if a message is allowed
func (wsl *WebSocketLimiter) Allow() bool {
	return wsl.limiter.Allow()
}
