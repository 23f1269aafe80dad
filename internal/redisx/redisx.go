// Package redisx provides the Redis client and the API key cache built on it.
package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"eventtrack-api/internal/config"
	"eventtrack-api/internal/events"
	"eventtrack-api/internal/logx"
)

// Client is an alias for a Redis client
type Client = redis.Client

// Open connects when REDIS_ADDR is set. A nil client means Redis is disabled.
func Open(cfg *config.Config) (*Client, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, func() {}, err
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

const (
	keyCachePrefix = "apikey:"
	tombstone      = "-"
)

// KeyCache caches validated API keys. Redis failures on reads and fills degrade
// to cache misses; a failed revocation is returned to the caller.
type KeyCache struct {
	rdb *Client
	ttl time.Duration
	log *zap.Logger
}

var _ events.KeyCache = (*KeyCache)(nil)

// NewKeyCache caches entries and tombstones for ttl.
func NewKeyCache(rdb *Client, ttl time.Duration) *KeyCache {
	return &KeyCache{rdb: rdb, ttl: ttl, log: logx.GetScope("redis").Zap()}
}

type cachedKey struct {
	KeyID     string `json:"k"`
	ChannelID string `json:"c"`
	OrgID     string `json:"o"`
}

func (c *KeyCache) Get(ctx context.Context, key string) (events.KeyContext, events.CacheState) {
	b, err := c.rdb.Get(ctx, keyCachePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("key cache get failed", zap.Error(err))
		}
		return events.KeyContext{}, events.CacheMiss
	}
	if string(b) == tombstone {
		return events.KeyContext{}, events.CacheRevoked
	}
	var v cachedKey
	if err := json.Unmarshal(b, &v); err != nil {
		c.log.Warn("key cache entry unreadable", zap.Error(err))
		return events.KeyContext{}, events.CacheMiss
	}
	return events.KeyContext{KeyID: v.KeyID, ChannelID: v.ChannelID, OrgID: v.OrgID}, events.CacheHit
}

// Set uses SETNX so it never overwrites a tombstone written by Revoke.
func (c *KeyCache) Set(ctx context.Context, key string, kc events.KeyContext) {
	b, err := json.Marshal(cachedKey{KeyID: kc.KeyID, ChannelID: kc.ChannelID, OrgID: kc.OrgID})
	if err != nil {
		c.log.Warn("key cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.SetNX(ctx, keyCachePrefix+key, b, c.ttl).Err(); err != nil {
		c.log.Warn("key cache set failed", zap.Error(err))
	}
}

func (c *KeyCache) Revoke(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Set(ctx, keyCachePrefix+k, tombstone, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.log.Error("key cache revocation failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}
