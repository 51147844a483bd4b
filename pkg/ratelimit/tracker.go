package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memocloud_rate_limit_cooldowns_total",
		Help: "Total number of 429 responses that opened a cooldown window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memocloud_rate_limit_blocks_total",
		Help: "Total number of requests rejected during a long cooldown",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memocloud_rate_limit_waits_total",
		Help: "Total number of requests delayed by a short cooldown",
	})
)

// Tracker paces requests and tracks 429 cooldowns.
// With a nil Redis client the cooldown is kept in process memory.
type Tracker struct {
	redis   *redis.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	local RateLimitState
}

// NewTracker creates a new rate limit tracker allowing rps requests per
// second with the given burst. rps <= 0 disables pacing.
func NewTracker(redisClient *redis.Client, rps float64, burst int, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Tracker{
		redis:   redisClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// GetState retrieves the current cooldown state from Redis, or from memory
// when no Redis client is configured.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	vals, err := t.redis.MGet(ctx, RedisKeyCooldownUntil, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &RateLimitState{}
	if ms, ok := parseMillis(vals[0]); ok {
		state.CooldownUntil = time.UnixMilli(ms)
	}
	if ms, ok := parseMillis(vals[1]); ok {
		state.LastUpdate = time.UnixMilli(ms)
	}
	return state, nil
}

func parseMillis(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UpdateFromResponse opens a cooldown window when status is 429.
// Other statuses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	if status != http.StatusTooManyRequests {
		return nil
	}

	now := time.Now()
	wait, ok := ParseRetryAfter(headers.Get("Retry-After"), now)
	if !ok {
		wait = DefaultCooldown
	}
	if wait > MaxCooldown {
		wait = MaxCooldown
	}

	state := RateLimitState{CooldownUntil: now.Add(wait), LastUpdate: now}

	t.mu.Lock()
	t.local = state
	t.mu.Unlock()

	rateLimitCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("cooldown", wait).
		Time("cooldown_until", state.CooldownUntil).
		Msg("API rate limit hit - cooling down")

	if t.redis == nil || wait <= 0 {
		return nil
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, state.CooldownUntil.UnixMilli(), wait)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest gates one outbound request.
// It returns false while a long cooldown is active. A short cooldown is
// slept through, then the token bucket is waited on. A cancelled context
// returns its error.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsBlock() {
		t.logger.Error().
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("API cooldown active - blocking request")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsWait() {
		wait := state.TimeUntilReset()
		t.logger.Warn().Dur("wait_duration", wait).Msg("API cooldown active - delaying request")
		rateLimitWaitsTotal.Inc()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		// Wait fails early when the deadline is shorter than the next token.
		return false, fmt.Errorf("rate limiter wait: %w", err)
	}
	return true, nil
}

// ParseRetryAfter reads a Retry-After header value, either delta-seconds or
// an HTTP date. ok is false when the value is empty or unparseable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
