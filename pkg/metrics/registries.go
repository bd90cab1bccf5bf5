package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedloader_processed_feed_ops_total",
		Help: "The total number of processed feed requests",
	})
	ImageRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedloader_processed_image_ops_total",
		Help: "The total number of processed image data requests",
	})
	CommentRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedloader_processed_comment_ops_total",
		Help: "The total number of processed comment requests",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedloader_processed_cache_hits_ops_total",
		Help: "The total number of image cache hits",
	})
	CacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedloader_processed_cache_miss_ops_total",
		Help: "The total number of image cache misses",
	})
	FallbackLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedloader_fallback_loads_total",
		Help: "Number of loads served by the fallback loader.",
	}, []string{"resource"})
	CacheWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedloader_cache_write_failures_total",
		Help: "Number of failed writes of loaded values to the local store.",
	}, []string{"type"})
	CacheValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedloader_cache_validations_total",
		Help: "Cache validation results",
	}, []string{"result"})
	AppErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedloader_errors_total",
		Help: "Number of errors for the app.",
	}, []string{"type"})
)
