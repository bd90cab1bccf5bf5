package app

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/piraces/feedloader/pkg/helpers"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/metrics"
	"github.com/piraces/feedloader/pkg/new/domain/comment"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

type HTTPClient interface {
	Get(url string, completion func(loader.Result[HTTPResponse])) loader.Task
}

// FeedStore holds at most one CachedFeed. Retrieve delivers a nil feed when
// the store is empty.
type FeedStore interface {
	Retrieve(completion func(loader.Result[*feed.CachedFeed])) loader.Task
	Insert(items []feed.Item, timestamp time.Time, completion func(error)) loader.Task
	DeleteCachedFeed(completion func(error)) loader.Task
}

// ImageDataStore holds at most one record per URL. RetrieveImageData
// delivers nil data when nothing is stored for the URL.
type ImageDataStore interface {
	RetrieveImageData(url feed.ImageURL, completion func(loader.Result[[]byte])) loader.Task
	InsertImageData(data []byte, url feed.ImageURL, completion func(error)) loader.Task
}

type Config struct {
	FeedURL     string
	BaseURL     string
	Mapper      FeedMapper
	Policy      ValidationPolicy
	CurrentDate func() time.Time

	// ImagesLocalFirst serves stored image data before asking the network.
	ImagesLocalFirst bool
}

// App wires the remote and local loaders into the composed loaders used by
// the ports.
type App struct {
	Feed loader.Loader[[]feed.Item]

	remoteFeed   *RemoteFeedLoader
	localFeed    *LocalFeedLoader
	remoteImages *RemoteImageDataLoader
	localImages  *LocalImageDataLoader
	client       HTTPClient
	baseURL      string
	localFirst   bool
}

func NewApp(config Config, client HTTPClient, feedStore FeedStore, imageStore ImageDataStore) (*App, error) {
	if !helpers.IsValidHttpUrl(config.FeedURL) {
		return nil, errors.Errorf("invalid feed url '%s'", config.FeedURL)
	}

	if !helpers.IsValidHttpUrl(config.BaseURL) {
		return nil, errors.Errorf("invalid base url '%s'", config.BaseURL)
	}

	if config.Mapper == nil {
		config.Mapper = NewJSONFeedMapper()
	}

	if config.CurrentDate == nil {
		config.CurrentDate = time.Now
	}

	a := &App{
		remoteFeed:   NewRemoteFeedLoader(config.FeedURL, client, config.Mapper),
		localFeed:    NewLocalFeedLoader(feedStore, config.CurrentDate, config.Policy),
		remoteImages: NewRemoteImageDataLoader(client),
		localImages:  NewLocalImageDataLoader(imageStore),
		client:       client,
		baseURL:      config.BaseURL,
		localFirst:   config.ImagesLocalFirst,
	}

	a.Feed = loader.Fallback[[]feed.Item](
		loader.Caching[[]feed.Item](a.remoteFeed, observedSink[[]feed.Item]("feed", a.localFeed.Save)),
		countFallback[[]feed.Item]("feed", a.localFeed),
	)

	return a, nil
}

// ImageData loads the image data for url, downloading it and caching the
// download with the local store as fallback. When configured local first, the
// local store is asked first and the caching download is the fallback.
func (a *App) ImageData(url feed.ImageURL) loader.Loader[[]byte] {
	local := a.localImages.LoaderFor(url)
	remote := loader.Caching[[]byte](
		a.remoteImages.LoaderFor(url),
		observedSink[[]byte]("image", a.localImages.SinkFor(url)),
	)

	if a.localFirst {
		return loader.Fallback[[]byte](local, countFallback[[]byte]("image", remote))
	}
	return loader.Fallback[[]byte](remote, countFallback[[]byte]("image", local))
}

func (a *App) Comments(imageID uuid.UUID) (loader.Loader[[]comment.Comment], error) {
	url, err := helpers.UrlJoin(a.baseURL, "image", imageID.String(), "comments")
	if err != nil {
		return nil, errors.Wrap(err, "error building the comments url")
	}

	return NewRemoteCommentLoader(url, a.client), nil
}

func (a *App) ValidateCache(completion func()) loader.Task {
	return a.localFeed.ValidateCache(completion)
}

// Close releases the loaders. Completions of operations still in flight are
// dropped.
func (a *App) Close() error {
	var result error
	for _, closer := range []interface{ Close() error }{a.remoteFeed, a.localFeed, a.remoteImages, a.localImages} {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func observedSink[T any](kind string, sink loader.Sink[T]) loader.Sink[T] {
	return func(value T, completion func(error)) loader.Task {
		return sink(value, func(err error) {
			if err != nil {
				log.Printf("[WARN] failure to cache %s: %v", kind, err)
				metrics.CacheWriteFailures.With(prometheus.Labels{"type": kind}).Inc()
			}
			completion(err)
		})
	}
}

func countFallback[T any](resource string, l loader.Loader[T]) loader.Loader[T] {
	return loader.LoaderFunc[T](func(completion func(loader.Result[T])) loader.Task {
		log.Printf("[DEBUG] falling back for %s", resource)
		metrics.FallbackLoads.With(prometheus.Labels{"resource": resource}).Inc()
		return l.Load(completion)
	})
}
