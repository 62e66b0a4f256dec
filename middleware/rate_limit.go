package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/chirp/metrics"
	"github.com/cppla/chirp/utils"
)

const throttleIdleTTL = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// IPThrottle keeps one token bucket per client IP. It sits in front of the
// per-author post limit and protects the API as a whole.
type IPThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
	// seconds until the next token, sent as Retry-After
	retryAfter string
	now        func() time.Time
}

// NewIPThrottle allows perMinute requests per IP with a burst of half that.
func NewIPThrottle(perMinute int) *IPThrottle {
	perMinute = max(perMinute, 1)
	return &IPThrottle{
		limiters:   map[string]*rateLimiter{},
		limit:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:      max(perMinute/2, 1),
		retryAfter: strconv.Itoa(max(60/perMinute, 1)),
		now:        time.Now,
	}
}

// Middleware rejects requests over the IP budget with 429.
func (t *IPThrottle) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !t.allow(ctx.ClientIP()) {
			metrics.RateLimitDecisions.WithLabelValues("ip", "denied").Inc()
			ctx.Header("Retry-After", t.retryAfter)
			utils.Abort(ctx, http.StatusTooManyRequests, 42900, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

func (t *IPThrottle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanupExpiredLocked(now)

	l, ok := t.limiters[ip]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[ip] = l
	}
	l.expires = now.Add(throttleIdleTTL)
	return l.limiter.AllowN(now, 1)
}

func (t *IPThrottle) cleanupExpiredLocked(now time.Time) {
	for key, l := range t.limiters {
		if now.After(l.expires) {
			delete(t.limiters, key)
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
