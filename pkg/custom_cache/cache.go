package custom_cache

import (
	"context"
	"log"
	"time"

	"github.com/allegro/bigcache"
	"github.com/eko/gocache/lib/v4/cache"
	bigcache_store "github.com/eko/gocache/store/bigcache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultMaxSizeMB = 256
)

type Config struct {
	Backend   string
	RedisAddr string
	// Eviction and MaxSizeMB apply to the in-memory backend only. Zero
	// eviction keeps entries for a year; zero size means DefaultMaxSizeMB.
	Eviction  time.Duration
	MaxSizeMB int
}

// Cache is the blob cache backing the image data store. Values are stored as
// []byte; the redis backend hands them back as string.
type Cache struct {
	*cache.Cache[any]

	bigcache *bigcache.BigCache
	redis    *redis.Client
}

func New(config Config) (*Cache, error) {
	switch config.Backend {
	case BackendMemory, "":
		eviction := config.Eviction
		if eviction <= 0 {
			eviction = 365 * 24 * time.Hour
		}

		bigcacheConfig := bigcache.DefaultConfig(eviction)
		bigcacheConfig.HardMaxCacheSize = config.MaxSizeMB
		if bigcacheConfig.HardMaxCacheSize <= 0 {
			bigcacheConfig.HardMaxCacheSize = DefaultMaxSizeMB
		}

		client, err := bigcache.NewBigCache(bigcacheConfig)
		if err != nil {
			return nil, errors.Wrap(err, "error creating the in-memory cache")
		}

		log.Printf("[INFO] image cache in memory, up to %d MB", bigcacheConfig.HardMaxCacheSize)
		return &Cache{
			Cache:    cache.New[any](bigcache_store.NewBigcache(client)),
			bigcache: client,
		}, nil
	case BackendRedis:
		if config.RedisAddr == "" {
			return nil, errors.New("redis address is required for the redis cache")
		}

		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})

		log.Printf("[INFO] image cache in redis at %s", config.RedisAddr)
		return &Cache{
			Cache: cache.New[any](redis_store.NewRedis(client)),
			redis: client,
		}, nil
	default:
		return nil, errors.Errorf("unknown cache backend '%s'", config.Backend)
	}
}

// Ping checks that the backend is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return errors.Wrap(c.redis.Ping(ctx).Err(), "error pinging redis")
}

func (c *Cache) Close() error {
	var result error
	if c.bigcache != nil {
		if err := c.bigcache.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
