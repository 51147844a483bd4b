//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { _ = redisContainer.Terminate(context.Background()) })

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestTracker_Integration_EmptyState(t *testing.T) {
	tracker := NewTracker(setupRedis(t), 0, 1, quietLogger())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.InCooldown() {
		t.Error("empty Redis should report no cooldown")
	}
}

func TestTracker_Integration_CooldownShared(t *testing.T) {
	redisClient := setupRedis(t)
	ctx := context.Background()

	writer := NewTracker(redisClient, 0, 1, quietLogger())
	reader := NewTracker(redisClient, 0, 1, quietLogger())

	if err := writer.UpdateFromResponse(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"120"}}); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	state, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if d := state.TimeUntilReset(); d < 115*time.Second || d > 120*time.Second {
		t.Errorf("shared TimeUntilReset = %v, want about 120s", d)
	}

	allowed, err := reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second tracker ignored the shared cooldown")
	}
}

func TestTracker_Integration_CooldownKeyExpires(t *testing.T) {
	redisClient := setupRedis(t)
	ctx := context.Background()
	tracker := NewTracker(redisClient, 0, 1, quietLogger())

	_ = tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"1"}})

	time.Sleep(1500 * time.Millisecond)

	if n, _ := redisClient.Exists(ctx, RedisKeyCooldownUntil).Result(); n != 0 {
		t.Error("cooldown key should expire with the window")
	}
}
