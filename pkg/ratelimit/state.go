// Package ratelimit paces outbound API requests and honours server push-back.
//
// Two mechanisms gate each request. A token bucket (golang.org/x/time/rate)
// keeps the steady request rate polite while the corpus is paged. A cooldown
// window is opened whenever the API answers 429 Too Many Requests; its end
// comes from the Retry-After header and is shared across processes via Redis
// when one is configured.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyCooldownUntil = "memocloud:rate_limit:cooldown_until"
	RedisKeyLastUpdate    = "memocloud:rate_limit:last_update"
)

// Cooldown bounds.
const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 30 * time.Second

	// MaxCooldown caps a server-provided Retry-After.
	MaxCooldown = 10 * time.Minute

	// MaxInlineWait is the longest cooldown a request waits out before being sent.
	// Longer cooldowns reject the request instead.
	MaxInlineWait = 5 * time.Second
)

// RateLimitState represents the current cooldown state.
type RateLimitState struct {
	// CooldownUntil is when requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// TimeUntilReset returns the remaining cooldown, 0 when none is active.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// InCooldown reports whether the server asked us to back off and the window is still open.
func (s *RateLimitState) InCooldown() bool {
	return s.TimeUntilReset() > 0
}

// NeedsBlock returns true if the remaining cooldown is too long to wait out inline.
func (s *RateLimitState) NeedsBlock() bool {
	return s.TimeUntilReset() > MaxInlineWait
}

// NeedsWait returns true if a short cooldown is active and should be slept through.
func (s *RateLimitState) NeedsWait() bool {
	return s.InCooldown() && !s.NeedsBlock()
}
