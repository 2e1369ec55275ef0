package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterStaleThreshold  = 10 * time.Minute
)

// Decision is the outcome of one check-and-consume call.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// window tracks one client's consumption in the current fixed window.
type window struct {
	start time.Time
	count int
}

// fixedWindowLimiter enforces a fixed-window quota per client key.
//
// Unlike a token bucket, the fixed window can report exactly when the
// quota resets, which the 429 response needs for its retry-after hint.
// Cleanup of stale entries happens inline during CheckAndConsume.
type fixedWindowLimiter struct {
	mu          sync.Mutex
	clients     map[string]*window
	quota       int
	size        time.Duration
	now         func() time.Time
	lastCleanup time.Time
}

// newFixedWindowLimiter creates a limiter allowing quota requests per
// size window per client key.
func newFixedWindowLimiter(quota int, size time.Duration) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		clients:     make(map[string]*window),
		quota:       quota,
		size:        size,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// CheckAndConsume atomically checks the client's quota and consumes one
// unit if allowed. A denied request consumes nothing, so Remaining never
// goes negative and the count never exceeds the quota.
func (l *fixedWindowLimiter) CheckAndConsume(clientKey string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastCleanup) > limiterCleanupInterval {
		// An entry is stale only once its own window has rolled over;
		// with a window larger than the threshold, deleting mid-window
		// would hand an exhausted client fresh quota.
		stale := max(limiterStaleThreshold, l.size)
		for k, w := range l.clients {
			if now.Sub(w.start) > stale {
				delete(l.clients, k)
			}
		}
		l.lastCleanup = now
	}

	w, ok := l.clients[clientKey]
	if !ok || now.Sub(w.start) >= l.size {
		w = &window{start: now}
		l.clients[clientKey] = w
	}

	resetAt := w.start.Add(l.size)
	if w.count >= l.quota {
		return Decision{Allowed: false, Remaining: 0, Limit: l.quota, ResetAt: resetAt}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Remaining: l.quota - w.count,
		Limit:     l.quota,
		ResetAt:   resetAt,
	}
}

// rateLimitMiddleware enforces the fixed-window quota per client IP.
// Every response carries X-RateLimit-* headers; a rejection adds
// Retry-After and a retryAfter field in the body.
func rateLimitMiddleware(l *fixedWindowLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			d := l.CheckAndConsume(ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retryAfter := int(time.Until(d.ResetAt).Seconds()) + 1
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":      "too many requests",
					"retryAfter": retryAfter,
				}, logger)
				return
			}

			ctx := r.Context()
			next.ServeHTTP(w, r.WithContext(contextWithQuota(ctx, d)))
		})
	}
}
