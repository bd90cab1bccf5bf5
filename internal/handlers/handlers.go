package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/metrics"
	"github.com/piraces/feedloader/pkg/new/domain/comment"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/prometheus/client_golang/prometheus"
)

type ImageDataLoaders interface {
	ImageData(url feed.ImageURL) loader.Loader[[]byte]
}

type CommentLoaders interface {
	Comments(imageID uuid.UUID) (loader.Loader[[]comment.Comment], error)
}

type FeedItem struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Image       string `json:"image"`
}

type FeedResponse struct {
	Items []FeedItem `json:"items"`
}

type CommentAuthor struct {
	Username string `json:"username"`
}

type CommentItem struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
	Author    CommentAuthor `json:"author"`
}

type CommentsResponse struct {
	Items []CommentItem `json:"items"`
}

// HandleFeed responds with the remote feed, or the cached one when the remote
// can't be loaded. It only fails when neither can be loaded.
func HandleFeed(w http.ResponseWriter, r *http.Request, feedLoader loader.Loader[[]feed.Item]) {
	metrics.FeedRequests.Inc()

	result, ok := await(r, feedLoader)
	if !ok {
		return
	}

	if result.Err != nil {
		log.Printf("[ERROR] failed to load the feed: %v", result.Err)
		metrics.AppErrors.With(prometheus.Labels{"type": "FEED_LOAD"}).Inc()
		http.Error(w, "Could not load the feed", http.StatusBadGateway)
		return
	}

	response := FeedResponse{Items: make([]FeedItem, 0, len(result.Value))}
	for _, item := range result.Value {
		response.Items = append(response.Items, FeedItem{
			ID:          item.ID().String(),
			Description: item.Description(),
			Location:    item.Location(),
			Image:       item.Image().String(),
		})
	}

	writeJSON(w, response)
}

func HandleImage(w http.ResponseWriter, r *http.Request, loaders ImageDataLoaders) {
	metrics.ImageRequests.Inc()

	url, err := feed.NewImageURL(r.URL.Query().Get("url"))
	if err != nil {
		log.Printf("[DEBUG] tried to load image from invalid url %q, skipping", r.URL.Query().Get("url"))
		http.Error(w, "Invalid URL provided (must be in absolute format and with http or https scheme)...", http.StatusBadRequest)
		return
	}

	result, ok := await(r, loaders.ImageData(url))
	if !ok {
		return
	}

	if result.Err != nil {
		log.Printf("[DEBUG] failed to load image data for %s: %v", url, result.Err)
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(result.Value))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Value)
}

func HandleComments(w http.ResponseWriter, r *http.Request, loaders CommentLoaders) {
	metrics.CommentRequests.Inc()

	imageID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	commentLoader, err := loaders.Comments(imageID)
	if err != nil {
		log.Printf("[ERROR] failed to create the comments loader: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, ok := await(r, commentLoader)
	if !ok {
		return
	}

	if result.Err != nil {
		log.Printf("[ERROR] failed to load comments of image %s: %v", imageID, result.Err)
		metrics.AppErrors.With(prometheus.Labels{"type": "COMMENTS_LOAD"}).Inc()
		http.Error(w, "Could not load the comments", http.StatusBadGateway)
		return
	}

	response := CommentsResponse{Items: make([]CommentItem, 0, len(result.Value))}
	for _, c := range result.Value {
		response.Items = append(response.Items, CommentItem{
			ID:        c.ID().String(),
			Message:   c.Message(),
			CreatedAt: c.CreatedAt(),
			Author:    CommentAuthor{Username: c.Author()},
		})
	}

	writeJSON(w, response)
}

// await blocks until l completes or the client goes away, in which case the
// load is cancelled and ok is false.
func await[T any](r *http.Request, l loader.Loader[T]) (result loader.Result[T], ok bool) {
	done := make(chan loader.Result[T], 1)
	task := l.Load(func(result loader.Result[T]) {
		done <- result
	})

	select {
	case result = <-done:
		return result, true
	case <-r.Context().Done():
		log.Printf("[DEBUG] request to %s cancelled", r.URL.Path)
		task.Cancel()
		return result, false
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	response, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response)
}
