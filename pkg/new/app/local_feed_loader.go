package app

import (
	"log"
	"time"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/metrics"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/prometheus/client_golang/prometheus"
)

type LocalFeedLoader struct {
	store       FeedStore
	currentDate func() time.Time
	policy      ValidationPolicy
	lifetime    loader.Lifetime
}

func NewLocalFeedLoader(store FeedStore, currentDate func() time.Time, policy ValidationPolicy) *LocalFeedLoader {
	if policy.IsZero() {
		policy = DefaultValidationPolicy()
	}

	return &LocalFeedLoader{
		store:       store,
		currentDate: currentDate,
		policy:      policy,
	}
}

// Load delivers the cached items. An empty store or an expired feed both
// deliver an empty slice; only a store failure is an error.
func (l *LocalFeedLoader) Load(completion func(loader.Result[[]feed.Item])) loader.Task {
	return l.store.Retrieve(loader.Bind(&l.lifetime, func(result loader.Result[*feed.CachedFeed]) {
		switch {
		case result.Err != nil:
			completion(loader.Failure[[]feed.Item](loader.NewError(loader.ErrRetrieval, result.Err)))
		case result.Value != nil && l.policy.IsValid(l.currentDate(), result.Value.Timestamp):
			completion(loader.Success(result.Value.Items))
		default:
			completion(loader.Success([]feed.Item{}))
		}
	}))
}

// Save replaces the cached feed with items, timestamped with the current date.
func (l *LocalFeedLoader) Save(items []feed.Item, completion func(error)) loader.Task {
	guard := loader.NewGuard(func(result loader.Result[struct{}]) {
		completion(result.Err)
	})
	chain := loader.NewChainTask(guard)

	fail := func(err error) {
		guard.Complete(loader.Failure[struct{}](loader.NewError(loader.ErrSave, err)))
	}

	chain.Run(func() loader.Task {
		return l.store.DeleteCachedFeed(loader.Bind(&l.lifetime, func(err error) {
			if err != nil {
				fail(err)
				return
			}

			chain.Run(func() loader.Task {
				return l.store.Insert(items, l.currentDate(), loader.Bind(&l.lifetime, func(err error) {
					if err != nil {
						fail(err)
						return
					}
					guard.Complete(loader.Success(struct{}{}))
				}))
			})
		}))
	})

	return chain
}

// ValidateCache deletes the cached feed when it can't be read or has expired.
// Failures are logged and never reported; completion, if given, is called
// once the maintenance is done.
func (l *LocalFeedLoader) ValidateCache(completion func()) loader.Task {
	guard := loader.NewGuard(func(loader.Result[struct{}]) {
		if completion != nil {
			completion()
		}
	})
	chain := loader.NewChainTask(guard)

	done := func(result string) {
		metrics.CacheValidations.With(prometheus.Labels{"result": result}).Inc()
		guard.Complete(loader.Success(struct{}{}))
	}

	deleteCache := func() {
		chain.Run(func() loader.Task {
			return l.store.DeleteCachedFeed(loader.Bind(&l.lifetime, func(err error) {
				if err != nil {
					log.Printf("[WARN] failure to delete invalid cache: %v", err)
					done("delete_failed")
					return
				}
				done("deleted")
			}))
		})
	}

	chain.Run(func() loader.Task {
		return l.store.Retrieve(loader.Bind(&l.lifetime, func(result loader.Result[*feed.CachedFeed]) {
			switch {
			case result.Err != nil:
				log.Printf("[DEBUG] cache retrieval failed, deleting: %v", result.Err)
				deleteCache()
			case result.Value != nil && !l.policy.IsValid(l.currentDate(), result.Value.Timestamp):
				log.Printf("[DEBUG] cache saved at %s expired, deleting", result.Value.Timestamp)
				deleteCache()
			default:
				done("valid")
			}
		}))
	})

	return chain
}

func (l *LocalFeedLoader) Close() error {
	l.lifetime.Release()
	return nil
}
