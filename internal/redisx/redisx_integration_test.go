//go:build integration
// +build integration

package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"eventtrack-api/internal/config"
	"eventtrack-api/internal/events"
)

func Test_KeyCache_With_RedisContainer(t *testing.T) {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	cfg := &config.Config{}
	cfg.Redis.Addr = addr
	rdb, closeFn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer closeFn()

	cache := NewKeyCache(rdb, time.Minute)
	want := events.KeyContext{KeyID: "k1", ChannelID: "c1", OrgID: "o1"}

	if _, state := cache.Get(ctx, "k1"); state != events.CacheMiss {
		t.Fatalf("expected miss on empty cache, got %v", state)
	}
	cache.Set(ctx, "k1", want)
	got, state := cache.Get(ctx, "k1")
	if state != events.CacheHit || got != want {
		t.Fatalf("got %+v state=%v, want %+v", got, state, want)
	}

	if err := cache.Revoke(ctx, "k1", "k2"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, state := cache.Get(ctx, "k1"); state != events.CacheRevoked {
		t.Fatalf("expected revoked after revoke, got %v", state)
	}

	// a fill that read the key before the rotation committed must not undo the revocation
	cache.Set(ctx, "k2", want)
	if _, state := cache.Get(ctx, "k2"); state != events.CacheRevoked {
		t.Fatalf("set overwrote tombstone, got %v", state)
	}
	if ttl := rdb.TTL(ctx, "apikey:k2").Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("tombstone ttl = %v", ttl)
	}
}

func TestOpen_DisabledWithoutAddr(t *testing.T) {
	rdb, closeFn, err := Open(&config.Config{})
	if err != nil || rdb != nil {
		t.Fatalf("expected disabled client, got %v %v", rdb, err)
	}
	closeFn()
}
