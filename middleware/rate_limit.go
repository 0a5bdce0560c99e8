package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Firesolami/needles-sub001/utils"
)

const (
	limiterIdle  = 5 * time.Minute
	limiterSweep = time.Minute
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet holds one token bucket per client key.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*rateLimiter
	lastSweep time.Time
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     max(perMinute/2, 1),
		limiters:  map[string]*rateLimiter{},
		lastSweep: time.Now(),
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastSweep) >= limiterSweep {
		s.sweep(now)
	}
	l, ok := s.limiters[key]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = l
	}
	l.expires = now.Add(limiterIdle)
	return l.limiter.Allow()
}

// sweep drops limiters idle past their expiry. Callers hold s.mu.
func (s *limiterSet) sweep(now time.Time) {
	for k, l := range s.limiters {
		if now.After(l.expires) {
			delete(s.limiters, k)
		}
	}
	s.lastSweep = now
}

// RateLimitMiddleware applies a token bucket per authenticated user, or per
// client IP for anonymous requests.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	set := newLimiterSet(perMinute)
	return func(ctx *gin.Context) {
		key := "ip:" + ctx.ClientIP()
		if v, ok := ctx.Get(ContextUserIDKey); ok {
			key = fmt.Sprintf("user:%v", v)
		}
		if !set.allow(key) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
