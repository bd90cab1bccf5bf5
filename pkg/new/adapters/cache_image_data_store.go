package adapters

import (
	"context"
	"log"

	"github.com/allegro/bigcache"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/metrics"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const imageKeyPrefix = "image:"

// CacheImageDataStore keeps image data keyed by URL in a gocache backend.
// Entries are never considered stale.
type CacheImageDataStore struct {
	cache cache.CacheInterface[any]
}

func NewCacheImageDataStore(cache cache.CacheInterface[any]) *CacheImageDataStore {
	return &CacheImageDataStore{cache: cache}
}

func (s *CacheImageDataStore) RetrieveImageData(url feed.ImageURL, completion func(loader.Result[[]byte])) loader.Task {
	return loader.Go(func(ctx context.Context) ([]byte, error) {
		return s.RetrieveImageDataContext(ctx, url)
	}, completion)
}

func (s *CacheImageDataStore) InsertImageData(data []byte, url feed.ImageURL, completion func(error)) loader.Task {
	return goErr(func(ctx context.Context) error {
		return s.InsertImageDataContext(ctx, data, url)
	}, completion)
}

// RetrieveImageDataContext returns nil data when nothing is stored for url.
func (s *CacheImageDataStore) RetrieveImageDataContext(ctx context.Context, url feed.ImageURL) ([]byte, error) {
	value, err := s.cache.Get(ctx, imageKey(url))
	if err != nil {
		if isMiss(err) {
			metrics.CacheMiss.Inc()
			return nil, nil
		}
		return nil, errors.Wrap(err, "error getting image data")
	}

	switch v := value.(type) {
	case []byte:
		metrics.CacheHits.Inc()
		return v, nil
	case string:
		metrics.CacheHits.Inc()
		return []byte(v), nil
	case nil:
		metrics.CacheMiss.Inc()
		return nil, nil
	default:
		return nil, errors.Errorf("unexpected image data of type %T", value)
	}
}

// InsertImageDataContext replaces any data stored for url.
func (s *CacheImageDataStore) InsertImageDataContext(ctx context.Context, data []byte, url feed.ImageURL) error {
	if err := s.cache.Set(ctx, imageKey(url), data); err != nil {
		return errors.Wrap(err, "error setting image data")
	}

	log.Printf("[DEBUG] cached %d bytes for image %s", len(data), url)
	return nil
}

func imageKey(url feed.ImageURL) string {
	return imageKeyPrefix + url.String()
}

func isMiss(err error) bool {
	return errors.Is(err, store.NotFound{}) ||
		errors.Is(err, bigcache.ErrEntryNotFound) ||
		errors.Is(err, redis.Nil)
}
