package adapters

import (
	"log"
	"sync"
	"time"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"golang.org/x/exp/slices"
)

// InMemoryFeedStore keeps the cached feed in process memory. Operations
// complete before returning.
type InMemoryFeedStore struct {
	cached     *feed.CachedFeed
	cachedLock sync.RWMutex
}

func NewInMemoryFeedStore() *InMemoryFeedStore {
	return &InMemoryFeedStore{}
}

func (s *InMemoryFeedStore) Retrieve(completion func(loader.Result[*feed.CachedFeed])) loader.Task {
	s.cachedLock.RLock()
	var result *feed.CachedFeed
	if s.cached != nil {
		result = &feed.CachedFeed{Items: slices.Clone(s.cached.Items), Timestamp: s.cached.Timestamp}
	}
	s.cachedLock.RUnlock()

	completion(loader.Success(result))
	return loader.NoopTask
}

func (s *InMemoryFeedStore) Insert(items []feed.Item, timestamp time.Time, completion func(error)) loader.Task {
	s.cachedLock.Lock()
	log.Printf("[DEBUG] caching %d feed items in memory", len(items))
	s.cached = &feed.CachedFeed{Items: slices.Clone(items), Timestamp: timestamp}
	s.cachedLock.Unlock()

	completion(nil)
	return loader.NoopTask
}

func (s *InMemoryFeedStore) DeleteCachedFeed(completion func(error)) loader.Task {
	s.cachedLock.Lock()
	s.cached = nil
	s.cachedLock.Unlock()

	completion(nil)
	return loader.NoopTask
}
