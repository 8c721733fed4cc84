package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/api/response"
	"github.com/kiranshivaraju/postpilot/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	window                   = time.Minute
)

// RateLimit counts requests per client in one-minute windows aligned to the
// clock, so every replica sharing the Redis counts into the same bucket.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	logger         *slog.Logger
	now            func() time.Time
}

// RateLimitOption customizes a RateLimit.
type RateLimitOption func(*RateLimit)

// WithRateLimitClock overrides the time source used to pick the window.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimit) { rl.now = now }
}

// NewRateLimit creates a new RateLimit middleware. A nil cache disables it.
func NewRateLimit(c cache.Cache, requestsPerMin int, logger *slog.Logger, opts ...RateLimitOption) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	if logger == nil {
		logger = slog.Default()
	}
	rl := &RateLimit{cache: c, requestsPerMin: requestsPerMin, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Limit applies rate limiting based on the client set by Authenticate.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := GetClient(r)
		if !ok || rl.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		start := now.Truncate(window)
		reset := start.Add(window)
		key := fmt.Sprintf("%s:%d", cache.RateLimitKey(client), start.Unix())

		count, err := rl.cache.IncrWithExpiry(r.Context(), key, window)
		if err != nil {
			// Fail open when Redis is unavailable.
			rl.logger.Warn("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(rl.requestsPerMin-int(count), 0)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			retry := max(int(reset.Sub(now).Round(time.Second)/time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			response.Error(w, http.StatusTooManyRequests,
				response.CodeRateLimited, "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
