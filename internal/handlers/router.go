package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
)

type Loaders interface {
	ImageDataLoaders
	CommentLoaders
}

func NewRouter(feedLoader loader.Loader[[]feed.Item], loaders Loaders, healthz http.HandlerFunc, metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.Path("/feed").Methods(http.MethodGet).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		HandleFeed(writer, request, feedLoader)
	})
	router.Path("/image").Methods(http.MethodGet).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		HandleImage(writer, request, loaders)
	})
	router.Path("/images/{id}/comments").Methods(http.MethodGet).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		HandleComments(writer, request, loaders)
	})
	router.Path("/healthz").HandlerFunc(healthz)
	router.Path("/metrics").Handler(metricsHandler)

	return router
}
