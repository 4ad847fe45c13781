package music

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const resolveCachePrefix = "rockola:resolve:"

// KVCache is the subset of a key-value store the resolution cache needs.
// Get returns redis.Nil on a miss.
type KVCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisKV struct {
	client redis.UniversalClient
}

func NewRedisKV(client redis.UniversalClient) KVCache {
	return redisKV{client: client}
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// CachedResolver remembers successful resolutions. Cache failures are
// logged and otherwise ignored.
type CachedResolver struct {
	next  Resolver
	cache KVCache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedResolver(next Resolver, cache KVCache, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   logger.With("component", "resolve_cache"),
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, query string) (Track, error) {
	key := resolveCacheKey(query)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var track Track
		jsonErr := json.Unmarshal([]byte(raw), &track)
		if jsonErr == nil {
			c.log.Debug("cache hit", "query", query)
			return track, nil
		}
		c.log.Warn("discarding corrupt cache entry", "key", key, "error", jsonErr)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", "key", key, "error", err)
	}

	track, err := c.next.Resolve(ctx, query)
	if err != nil {
		return Track{}, err
	}

	// RequestedBy belongs to one request, not to the cached resolution.
	stored := track
	stored.RequestedBy = ""
	payload, err := json.Marshal(stored)
	if err == nil {
		err = c.cache.Set(ctx, key, string(payload), c.ttl)
	}
	if err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}

	return track, nil
}

func resolveCacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return resolveCachePrefix + normalized
}
