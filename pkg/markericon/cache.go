package markericon

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheExpiration = 30 * time.Minute

// IconCache keeps the raw bytes of downloaded symbols keyed by URL
type IconCache interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Set(ctx context.Context, url string, icon []byte) error
}

type RedisIconCache struct {
	Cache *cache.Cache[string]
}

func NewRedisIconCache(client *redis.Client, expiration time.Duration) *RedisIconCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &RedisIconCache{
		Cache: cache.New[string](redisStore),
	}
}

func (c *RedisIconCache) Get(ctx context.Context, url string) ([]byte, error) {
	value, err := c.Cache.Get(ctx, cacheKey(url))
	if err != nil {
		return nil, err
	}

	return []byte(value), nil
}

func (c *RedisIconCache) Set(ctx context.Context, url string, icon []byte) error {
	return c.Cache.Set(ctx, cacheKey(url), string(icon))
}

func cacheKey(url string) string {
	return fmt.Sprintf("marker_icon:%s", url)
}
