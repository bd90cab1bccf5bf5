package ports

import (
	"context"
	"log"
	"time"

	"github.com/piraces/feedloader/pkg/loader"
)

const (
	DefaultValidationInterval = 30 * time.Minute
	DefaultShutdownTimeout    = 10 * time.Second
)

type CacheValidator interface {
	ValidateCache(completion func()) loader.Task
}

// CacheValidationTimer validates the cache on every tick and one last time
// when its context is done.
type CacheValidationTimer struct {
	validator       CacheValidator
	interval        time.Duration
	shutdownTimeout time.Duration
}

func NewCacheValidationTimer(validator CacheValidator, interval, shutdownTimeout time.Duration) *CacheValidationTimer {
	if interval <= 0 {
		interval = DefaultValidationInterval
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &CacheValidationTimer{validator: validator, interval: interval, shutdownTimeout: shutdownTimeout}
}

func (h *CacheValidationTimer) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.validate(ctx)
		case <-ctx.Done():
			log.Printf("[INFO] validating the cache before stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
			h.validate(shutdownCtx)
			cancel()
			return nil
		}
	}
}

// validate waits for the validation to finish, cancelling it when ctx is done.
func (h *CacheValidationTimer) validate(ctx context.Context) {
	done := make(chan struct{})
	task := h.validator.ValidateCache(func() {
		close(done)
	})

	select {
	case <-done:
		log.Printf("[DEBUG] cache validated")
	case <-ctx.Done():
		log.Printf("[WARN] cache validation cancelled: %v", ctx.Err())
		task.Cancel()
	}
}
