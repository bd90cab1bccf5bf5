package app_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/app"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/stretchr/testify/require"
)

const (
	sampleFeedURL = "https://feed.example/feed"
	sampleBaseURL = "https://feed.example"
)

var (
	anyError = errors.New("any error")
	fixedNow = time.Date(2024, time.March, 12, 10, 30, 0, 0, time.UTC)
)

func currentDate() time.Time {
	return fixedNow
}

func uniqueItem() feed.Item {
	id := uuid.New()
	return feed.MustNewItem(id, "a description", "a location", feed.MustNewImageURL(fmt.Sprintf("https://images.example/%s.jpg", id)))
}

func uniqueItems() []feed.Item {
	return []feed.Item{uniqueItem(), uniqueItem()}
}

func itemsJSON(t *testing.T, items []feed.Item) []byte {
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entry := map[string]any{
			"id":    item.ID().String(),
			"image": item.Image().String(),
		}
		if item.Description() != "" {
			entry["description"] = item.Description()
		}
		if item.Location() != "" {
			entry["location"] = item.Location()
		}
		payload = append(payload, entry)
	}

	b, err := json.Marshal(map[string]any{"items": payload})
	require.NoError(t, err)
	return b
}

type pending[T any] struct {
	guard  *loader.Guard[T]
	target string
}

type cancellable struct {
	mu        sync.Mutex
	cancelled []string
}

func (c *cancellable) task(target string, cancel func()) loader.Task {
	return loader.TaskFunc(func() {
		c.mu.Lock()
		c.cancelled = append(c.cancelled, target)
		c.mu.Unlock()
		cancel()
	})
}

func (c *cancellable) cancelledTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cancelled...)
}

type httpClientSpy struct {
	cancellable

	mu       sync.Mutex
	requests []pending[app.HTTPResponse]
}

func newHTTPClientSpy() *httpClientSpy {
	return &httpClientSpy{}
}

func (s *httpClientSpy) Get(url string, completion func(loader.Result[app.HTTPResponse])) loader.Task {
	guard := loader.NewGuard(completion)

	s.mu.Lock()
	s.requests = append(s.requests, pending[app.HTTPResponse]{guard: guard, target: url})
	s.mu.Unlock()

	return s.task(url, guard.Cancel)
}

func (s *httpClientSpy) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls []string
	for _, r := range s.requests {
		urls = append(urls, r.target)
	}
	return urls
}

func (s *httpClientSpy) completeWithError(err error, index int) {
	s.mu.Lock()
	r := s.requests[index]
	s.mu.Unlock()
	r.guard.Complete(loader.Failure[app.HTTPResponse](err))
}

func (s *httpClientSpy) completeWithStatus(code int, body []byte, index int) {
	s.mu.Lock()
	r := s.requests[index]
	s.mu.Unlock()
	r.guard.Complete(loader.Success(app.HTTPResponse{StatusCode: code, Body: body}))
}

type feedStoreMessage struct {
	Kind      string
	Items     []feed.Item
	Timestamp time.Time
}

const (
	messageRetrieve = "retrieve"
	messageInsert   = "insert"
	messageDelete   = "delete"
)

type feedStoreSpy struct {
	cancellable

	mu         sync.Mutex
	messages   []feedStoreMessage
	retrievals []*loader.Guard[*feed.CachedFeed]
	insertions []*loader.Guard[struct{}]
	deletions  []*loader.Guard[struct{}]
}

func newFeedStoreSpy() *feedStoreSpy {
	return &feedStoreSpy{}
}

func (s *feedStoreSpy) Retrieve(completion func(loader.Result[*feed.CachedFeed])) loader.Task {
	guard := loader.NewGuard(completion)

	s.mu.Lock()
	s.messages = append(s.messages, feedStoreMessage{Kind: messageRetrieve})
	s.retrievals = append(s.retrievals, guard)
	s.mu.Unlock()

	return s.task(messageRetrieve, guard.Cancel)
}

func (s *feedStoreSpy) Insert(items []feed.Item, timestamp time.Time, completion func(error)) loader.Task {
	guard := loader.NewGuard(errorCompletion(completion))

	s.mu.Lock()
	s.messages = append(s.messages, feedStoreMessage{Kind: messageInsert, Items: items, Timestamp: timestamp})
	s.insertions = append(s.insertions, guard)
	s.mu.Unlock()

	return s.task(messageInsert, guard.Cancel)
}

func (s *feedStoreSpy) DeleteCachedFeed(completion func(error)) loader.Task {
	guard := loader.NewGuard(errorCompletion(completion))

	s.mu.Lock()
	s.messages = append(s.messages, feedStoreMessage{Kind: messageDelete})
	s.deletions = append(s.deletions, guard)
	s.mu.Unlock()

	return s.task(messageDelete, guard.Cancel)
}

func (s *feedStoreSpy) receivedMessages() []feedStoreMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feedStoreMessage(nil), s.messages...)
}

func (s *feedStoreSpy) completeRetrieval(cached *feed.CachedFeed, index int) {
	s.mu.Lock()
	guard := s.retrievals[index]
	s.mu.Unlock()
	guard.Complete(loader.Success(cached))
}

func (s *feedStoreSpy) completeRetrievalWithError(err error, index int) {
	s.mu.Lock()
	guard := s.retrievals[index]
	s.mu.Unlock()
	guard.Complete(loader.Failure[*feed.CachedFeed](err))
}

func (s *feedStoreSpy) completeInsertion(err error, index int) {
	s.mu.Lock()
	guard := s.insertions[index]
	s.mu.Unlock()
	guard.Complete(errorResult(err))
}

func (s *feedStoreSpy) completeDeletion(err error, index int) {
	s.mu.Lock()
	guard := s.deletions[index]
	s.mu.Unlock()
	guard.Complete(errorResult(err))
}

type imageStoreMessage struct {
	Kind string
	Data []byte
	URL  string
}

type imageDataStoreSpy struct {
	cancellable

	mu         sync.Mutex
	messages   []imageStoreMessage
	retrievals []*loader.Guard[[]byte]
	insertions []*loader.Guard[struct{}]
}

func newImageDataStoreSpy() *imageDataStoreSpy {
	return &imageDataStoreSpy{}
}

func (s *imageDataStoreSpy) RetrieveImageData(url feed.ImageURL, completion func(loader.Result[[]byte])) loader.Task {
	guard := loader.NewGuard(completion)

	s.mu.Lock()
	s.messages = append(s.messages, imageStoreMessage{Kind: messageRetrieve, URL: url.String()})
	s.retrievals = append(s.retrievals, guard)
	s.mu.Unlock()

	return s.task(messageRetrieve, guard.Cancel)
}

func (s *imageDataStoreSpy) InsertImageData(data []byte, url feed.ImageURL, completion func(error)) loader.Task {
	guard := loader.NewGuard(errorCompletion(completion))

	s.mu.Lock()
	s.messages = append(s.messages, imageStoreMessage{Kind: messageInsert, Data: data, URL: url.String()})
	s.insertions = append(s.insertions, guard)
	s.mu.Unlock()

	return s.task(messageInsert, guard.Cancel)
}

func (s *imageDataStoreSpy) receivedMessages() []imageStoreMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]imageStoreMessage(nil), s.messages...)
}

func (s *imageDataStoreSpy) completeRetrieval(data []byte, index int) {
	s.mu.Lock()
	guard := s.retrievals[index]
	s.mu.Unlock()
	guard.Complete(loader.Success(data))
}

func (s *imageDataStoreSpy) completeRetrievalWithError(err error, index int) {
	s.mu.Lock()
	guard := s.retrievals[index]
	s.mu.Unlock()
	guard.Complete(loader.Failure[[]byte](err))
}

func (s *imageDataStoreSpy) completeInsertion(err error, index int) {
	s.mu.Lock()
	guard := s.insertions[index]
	s.mu.Unlock()
	guard.Complete(errorResult(err))
}

func errorCompletion(completion func(error)) func(loader.Result[struct{}]) {
	return func(result loader.Result[struct{}]) {
		completion(result.Err)
	}
}

func errorResult(err error) loader.Result[struct{}] {
	if err != nil {
		return loader.Failure[struct{}](err)
	}
	return loader.Success(struct{}{})
}

type results[T any] struct {
	mu     sync.Mutex
	values []loader.Result[T]
}

func (r *results[T]) append(result loader.Result[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, result)
}

func (r *results[T]) all() []loader.Result[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]loader.Result[T](nil), r.values...)
}

func (r *results[T]) single(t *testing.T) loader.Result[T] {
	all := r.all()
	require.Len(t, all, 1)
	return all[0]
}

type errorResults struct {
	mu     sync.Mutex
	values []error
	calls  int
}

func (r *errorResults) append(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, err)
	r.calls++
}

func (r *errorResults) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *errorResults) single(t *testing.T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Equal(t, 1, r.calls)
	return r.values[0]
}
