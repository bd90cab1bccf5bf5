package app

import (
	"net/http"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

type RemoteFeedLoader struct {
	url      string
	client   HTTPClient
	mapper   FeedMapper
	lifetime loader.Lifetime
}

func NewRemoteFeedLoader(url string, client HTTPClient, mapper FeedMapper) *RemoteFeedLoader {
	return &RemoteFeedLoader{url: url, client: client, mapper: mapper}
}

func (l *RemoteFeedLoader) Load(completion func(loader.Result[[]feed.Item])) loader.Task {
	return l.client.Get(l.url, loader.Bind(&l.lifetime, func(result loader.Result[HTTPResponse]) {
		completion(mapResponse(result, l.mapper.Map))
	}))
}

func (l *RemoteFeedLoader) Close() error {
	l.lifetime.Release()
	return nil
}

// mapResponse turns a transport result into a load result. Only a 200 with a
// non-empty body that decodes is a success.
func mapResponse[T any](result loader.Result[HTTPResponse], decode func([]byte) (T, error)) loader.Result[T] {
	if result.Err != nil {
		return loader.Failure[T](loader.NewError(loader.ErrConnectivity, result.Err))
	}

	response := result.Value
	if response.StatusCode != http.StatusOK {
		return loader.Failure[T](loader.NewError(loader.ErrInvalidData, errors.Errorf("unexpected status code %d", response.StatusCode)))
	}

	if len(response.Body) == 0 {
		return loader.Failure[T](loader.NewError(loader.ErrInvalidData, errors.New("empty body")))
	}

	value, err := decode(response.Body)
	if err != nil {
		return loader.Failure[T](loader.NewError(loader.ErrInvalidData, err))
	}

	return loader.Success(value)
}
