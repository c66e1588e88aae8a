// Package store holds the two persistence collaborators the event
// orchestrator talks to: a best-effort relational event/detection log
// and an optional Redis cache that records the latest event_id per camera
// for motion/start dedup.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores short-lived camera_id -> latest-event-key entries so
// duplicate motion/start messages can be recognized across process
// restarts; disabled cleanly when Redis isn't configured.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	enabled bool
}

// NewRedisCache builds a RedisCache. When enabled is false, every method
// is a no-op.
func NewRedisCache(addr string, ttlSeconds int, prefix string, enabled bool) *RedisCache {
	if !enabled {
		return &RedisCache{enabled: false}
	}
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		ttl:     time.Duration(ttlSeconds) * time.Second,
		prefix:  prefix,
		enabled: true,
	}
}

func (r *RedisCache) Enabled() bool { return r != nil && r.enabled }

// SetEventKey records the most recent event_id seen for cameraID, with
// the cache's ttl, so a duplicate motion/start can be recognized even
// after the orchestrator process restarts and loses its in-memory
// active-events table.
func (r *RedisCache) SetEventKey(ctx context.Context, cameraID, eventID string) error {
	if !r.Enabled() {
		return nil
	}
	key := fmt.Sprintf("%s:%s:latest_event", r.prefix, cameraID)
	if err := r.client.Set(ctx, key, eventID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// LatestEventKey returns the most recent event_id for cameraID, or
// ("", false) if absent/disabled/expired.
func (r *RedisCache) LatestEventKey(ctx context.Context, cameraID string) (string, bool) {
	if !r.Enabled() {
		return "", false
	}
	key := fmt.Sprintf("%s:%s:latest_event", r.prefix, cameraID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisCache) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
