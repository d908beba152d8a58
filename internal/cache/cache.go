// Package cache keeps rendered-profile lookups by username in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

const (
	defaultPrefix = "biotree:profile:"
	defaultTTL    = 5 * time.Minute
)

// ProfileCache is the minimal contract of the public-profile cache.
type ProfileCache interface {
	// Get returns the cached profile and whether it was present.
	Get(ctx context.Context, username string) (*models.Profile, bool, error)
	// Set stores p under its username.
	Set(ctx context.Context, p *models.Profile) error
	// Invalidate drops the given usernames; empty names are skipped.
	Invalidate(ctx context.Context, usernames ...string) error
	// Close closes the Redis client.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisProfileCache creates a client from a URL such as
// redis://:pass@host:6379/0 and pings it once.
func NewRedisProfileCache(redisURL, prefix string, ttl time.Duration) (ProfileCache, error) {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)

	// fail fast on start
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (c *redisCache) key(username string) string { return c.prefix + username }

func (c *redisCache) Get(ctx context.Context, username string) (*models.Profile, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.rdb.Del(ctx, c.key(username)).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *redisCache) Set(ctx context.Context, p *models.Profile) error {
	if p == nil || p.Username == "" {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.Username), raw, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, usernames ...string) error {
	keys := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u != "" {
			keys = append(keys, c.key(u))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }

// Noop is used when Redis is not configured: every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.Profile, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, *models.Profile) error                 { return nil }
func (Noop) Invalidate(context.Context, ...string) error                { return nil }
func (Noop) Close() error                                               { return nil }
