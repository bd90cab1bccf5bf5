package app

import (
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
)

type RemoteImageDataLoader struct {
	client   HTTPClient
	lifetime loader.Lifetime
}

func NewRemoteImageDataLoader(client HTTPClient) *RemoteImageDataLoader {
	return &RemoteImageDataLoader{client: client}
}

func (l *RemoteImageDataLoader) LoadImageData(url feed.ImageURL, completion func(loader.Result[[]byte])) loader.Task {
	return l.client.Get(url.String(), loader.Bind(&l.lifetime, func(result loader.Result[HTTPResponse]) {
		completion(mapResponse(result, func(body []byte) ([]byte, error) {
			return body, nil
		}))
	}))
}

func (l *RemoteImageDataLoader) LoaderFor(url feed.ImageURL) loader.Loader[[]byte] {
	return loader.LoaderFunc[[]byte](func(completion func(loader.Result[[]byte])) loader.Task {
		return l.LoadImageData(url, completion)
	})
}

func (l *RemoteImageDataLoader) Close() error {
	l.lifetime.Release()
	return nil
}

// LocalImageDataLoader serves image data from the store. Stored data never
// expires.
type LocalImageDataLoader struct {
	store    ImageDataStore
	lifetime loader.Lifetime
}

func NewLocalImageDataLoader(store ImageDataStore) *LocalImageDataLoader {
	return &LocalImageDataLoader{store: store}
}

func (l *LocalImageDataLoader) LoadImageData(url feed.ImageURL, completion func(loader.Result[[]byte])) loader.Task {
	return l.store.RetrieveImageData(url, loader.Bind(&l.lifetime, func(result loader.Result[[]byte]) {
		switch {
		case result.Err != nil:
			completion(loader.Failure[[]byte](loader.NewError(loader.ErrNotFound, result.Err)))
		case result.Value == nil:
			completion(loader.Failure[[]byte](loader.NewError(loader.ErrNotFound, nil)))
		default:
			completion(loader.Success(result.Value))
		}
	}))
}

func (l *LocalImageDataLoader) SaveImageData(data []byte, url feed.ImageURL, completion func(error)) loader.Task {
	return l.store.InsertImageData(data, url, loader.Bind(&l.lifetime, func(err error) {
		if err != nil {
			completion(loader.NewError(loader.ErrSave, err))
			return
		}
		completion(nil)
	}))
}

func (l *LocalImageDataLoader) LoaderFor(url feed.ImageURL) loader.Loader[[]byte] {
	return loader.LoaderFunc[[]byte](func(completion func(loader.Result[[]byte])) loader.Task {
		return l.LoadImageData(url, completion)
	})
}

func (l *LocalImageDataLoader) SinkFor(url feed.ImageURL) loader.Sink[[]byte] {
	return func(data []byte, completion func(error)) loader.Task {
		return l.SaveImageData(data, url, completion)
	}
}

func (l *LocalImageDataLoader) Close() error {
	l.lifetime.Release()
	return nil
}
