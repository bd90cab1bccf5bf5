package app_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/app"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemoteFeedLoader() (*app.RemoteFeedLoader, *httpClientSpy) {
	client := newHTTPClientSpy()
	return app.NewRemoteFeedLoader(sampleFeedURL, client, app.NewJSONFeedMapper()), client
}

func TestRemoteFeedLoader_NewDoesNotRequestData(t *testing.T) {
	_, client := newRemoteFeedLoader()
	assert.Empty(t, client.requestedURLs())
}

func TestRemoteFeedLoader_LoadRequestsDataFromURLOnEveryCall(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	sut.Load(func(loader.Result[[]feed.Item]) {})
	sut.Load(func(loader.Result[[]feed.Item]) {})

	assert.Equal(t, []string{sampleFeedURL, sampleFeedURL}, client.requestedURLs())
}

func TestRemoteFeedLoader_DeliversConnectivityErrorOnClientError(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	var received results[[]feed.Item]
	sut.Load(received.append)
	client.completeWithError(anyError, 0)

	result := received.single(t)
	assert.ErrorIs(t, result.Err, loader.ErrConnectivity)
	assert.ErrorIs(t, result.Err, anyError)
}

func TestRemoteFeedLoader_DeliversInvalidDataOnNon200Response(t *testing.T) {
	for i, code := range []int{199, 201, 300, 303, 400, 404, 500} {
		code := code
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			sut, client := newRemoteFeedLoader()

			var received results[[]feed.Item]
			sut.Load(received.append)
			client.completeWithStatus(code, itemsJSON(t, uniqueItems()), 0)

			result := received.single(t)
			assert.ErrorIs(t, result.Err, loader.ErrInvalidData, "case %d", i)
		})
	}
}

func TestRemoteFeedLoader_DeliversInvalidDataOn200WithInvalidBody(t *testing.T) {
	testCases := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "not_json", body: []byte("invalid json")},
		{name: "missing_items", body: []byte(`{"other":[]}`)},
		{name: "missing_id", body: []byte(`{"items":[{"image":"https://images.example/1.jpg"}]}`)},
		{name: "invalid_id", body: []byte(`{"items":[{"id":"not-a-uuid","image":"https://images.example/1.jpg"}]}`)},
		{name: "invalid_image", body: []byte(`{"items":[{"id":"0c4de1a3-8d0d-4ec4-a9e7-3b0ea1e3b1f4","image":"not a url"}]}`)},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			sut, client := newRemoteFeedLoader()

			var received results[[]feed.Item]
			sut.Load(received.append)
			client.completeWithStatus(200, testCase.body, 0)

			assert.ErrorIs(t, received.single(t).Err, loader.ErrInvalidData)
		})
	}
}

func TestRemoteFeedLoader_DeliversNoItemsOn200WithEmptyList(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	var received results[[]feed.Item]
	sut.Load(received.append)
	client.completeWithStatus(200, []byte(`{"items":[]}`), 0)

	result := received.single(t)
	require.NoError(t, result.Err)
	assert.Empty(t, result.Value)
}

func TestRemoteFeedLoader_DeliversItemsOn200WithItems(t *testing.T) {
	sut, client := newRemoteFeedLoader()
	items := []feed.Item{
		uniqueItem(),
		feed.MustNewItem(uniqueItem().ID(), "", "", feed.MustNewImageURL("https://images.example/bare.jpg")),
	}

	var received results[[]feed.Item]
	sut.Load(received.append)
	client.completeWithStatus(200, itemsJSON(t, items), 0)

	result := received.single(t)
	require.NoError(t, result.Err)
	assert.Equal(t, items, result.Value)
}

func TestRemoteFeedLoader_CancelCancelsRequestAndDeliversNothing(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	var received results[[]feed.Item]
	task := sut.Load(received.append)
	task.Cancel()
	client.completeWithStatus(200, itemsJSON(t, uniqueItems()), 0)

	assert.Equal(t, []string{sampleFeedURL}, client.cancelledTargets())
	assert.Empty(t, received.all())
}

func TestRemoteFeedLoader_DoesNotDeliverAfterClose(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	var received results[[]feed.Item]
	sut.Load(received.append)
	require.NoError(t, sut.Close())
	client.completeWithError(anyError, 0)

	assert.Empty(t, received.all())
}

func TestRemoteFeedLoader_InvalidDataWrapsTheDecodingCause(t *testing.T) {
	sut, client := newRemoteFeedLoader()

	var received results[[]feed.Item]
	sut.Load(received.append)
	client.completeWithStatus(200, []byte("{"), 0)

	var loaderErr *loader.Error
	require.True(t, errors.As(received.single(t).Err, &loaderErr))
	assert.Equal(t, loader.ErrInvalidData, loaderErr.Kind)
	assert.Error(t, loaderErr.Cause)
}
