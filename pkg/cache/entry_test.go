package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Freshness(t *testing.T) {
	tests := []struct {
		name        string
		expires     time.Time
		wantExpired bool
		wantMinTTL  time.Duration
		wantMaxTTL  time.Duration
	}{
		{
			name:        "stale listing page",
			expires:     time.Now().Add(-1 * time.Hour),
			wantExpired: true,
		},
		{
			name:        "just expired",
			expires:     time.Now().Add(-1 * time.Second),
			wantExpired: true,
		},
		{
			name:       "default ttl remaining",
			expires:    time.Now().Add(DefaultTTL),
			wantMinTTL: DefaultTTL - time.Second,
			wantMaxTTL: DefaultTTL + time.Second,
		},
		{
			name:       "one hour remaining",
			expires:    time.Now().Add(1 * time.Hour),
			wantMinTTL: 59 * time.Minute,
			wantMaxTTL: 61 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			got := entry.TTL()
			if got < tt.wantMinTTL || got > tt.wantMaxTTL {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMinTTL, tt.wantMaxTTL)
			}
		})
	}
}

func TestCacheEntry_Age(t *testing.T) {
	entry := &CacheEntry{CachedAt: time.Now().Add(-2 * time.Minute)}
	if age := entry.Age(); age < 2*time.Minute || age > 2*time.Minute+time.Second {
		t.Errorf("Age() = %v, want about 2m", age)
	}
}
