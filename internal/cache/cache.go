// Package cache publishes leaderboard snapshots to Redis for fast reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bingo-ledger/internal/config"
	"bingo-ledger/internal/model"
)

const keyPrefix = "leaderboard:"

// ConnectRedis opens a client for cfg and verifies it with a ping.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			_ = cn.ClientSetName(ctx, "bingo-ledger").Err()
			return nil
		},
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// SnapshotCache stores whole snapshots under one key each. A snapshot is
// written with a single SET, so readers never see a partial list.
type SnapshotCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache. A zero ttl keeps entries until
// they are overwritten.
func NewSnapshotCache(rdb redis.Cmdable, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key of a snapshot key.
func Key(snapshotKey string) string {
	return keyPrefix + snapshotKey
}

// Put publishes snap.
func (c *SnapshotCache) Put(ctx context.Context, snap *model.LeaderboardSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(snap.Key), string(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot. ok is false on a cache miss.
func (c *SnapshotCache) Get(ctx context.Context, snapshotKey string) (*model.LeaderboardSnapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(snapshotKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snap model.LeaderboardSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &snap, true, nil
}
