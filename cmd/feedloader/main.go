package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/logutils"
	"github.com/hellofresh/health-go/v5"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/mattn/go-sqlite3"
	"github.com/piraces/feedloader/internal/handlers"
	"github.com/piraces/feedloader/pkg/custom_cache"
	"github.com/piraces/feedloader/pkg/new/adapters"
	"github.com/piraces/feedloader/pkg/new/app"
	"github.com/piraces/feedloader/pkg/new/ports"
	"github.com/piraces/feedloader/scripts"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	storeSQLite = "sqlite"
	storeMemory = "memory"
)

type Config struct {
	FeedURL           string        `envconfig:"FEED_URL" required:"true"`
	BaseURL           string        `envconfig:"BASE_URL" required:"true"`
	FeedFormat        string        `envconfig:"FEED_FORMAT" default:"json"`
	Store             string        `envconfig:"STORE" default:"sqlite"`
	DatabaseDirectory string        `envconfig:"DB_DIR" default:"db/feedloader.sqlite"`
	ImageCache        string        `envconfig:"IMAGE_CACHE" default:"memory"`
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:""`
	ImageCacheMaxMB   int           `envconfig:"IMAGE_CACHE_MAX_MB" default:"256"`
	ImagesLocalFirst  bool          `envconfig:"IMAGES_LOCAL_FIRST" default:"false"`
	CacheMaxAgeDays   int           `envconfig:"CACHE_MAX_AGE_DAYS" default:"7"`
	CacheTimezone     string        `envconfig:"CACHE_TIMEZONE" default:"UTC"`
	ValidateInterval  time.Duration `envconfig:"VALIDATE_INTERVAL" default:"30m"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	HTTPMaxBodyBytes  int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"10485760"`
	ListenAddr        string        `envconfig:"LISTEN_ADDR" default:":8080"`
	Version           string        `envconfig:"VERSION" default:"unknown"`
}

type service struct {
	app        *app.App
	db         *sql.DB
	imageCache *custom_cache.Cache
	health     *health.Health
}

func (s *service) Close() error {
	var result error
	if err := s.app.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if s.imageCache != nil {
		if err := s.imageCache.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func ConfigureLogging() {
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
		MinLevel: logutils.LogLevel(os.Getenv("LOG_LEVEL")),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
}

func CreateHealthCheck(config Config, db *sql.DB, imageCache *custom_cache.Cache) (*health.Health, error) {
	checks := []health.Config{
		{
			Name:      "self",
			Timeout:   time.Second * 5,
			SkipOnErr: false,
			Check: func(ctx context.Context) error {
				return nil
			},
		},
	}

	if db != nil {
		checks = append(checks, health.Config{
			Name:      "sqlite",
			Timeout:   time.Second * 5,
			SkipOnErr: false,
			Check:     db.PingContext,
		})
	}

	if imageCache != nil && config.ImageCache == custom_cache.BackendRedis {
		checks = append(checks, health.Config{
			Name:      "redis",
			Timeout:   time.Second * 5,
			SkipOnErr: true,
			Check:     imageCache.Ping,
		})
	}

	return health.New(health.WithComponent(health.Component{
		Name:    "feedloader",
		Version: config.Version,
	}), health.WithChecks(checks...))
}

func InitDatabase(dsn string) (*sql.DB, error) {
	// Create empty dir if not exists
	dbPath := path.Dir(dsn)
	if err := os.MkdirAll(dbPath, 0750); err != nil {
		log.Printf("[INFO] unable to initialize DB_DIR at: %s. Error: %v", dbPath, err)
	}

	sqlDb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	log.Printf("[INFO] database opened at %s", dsn)

	if _, err := sqlDb.Exec(scripts.SchemaSQL); err != nil {
		_ = sqlDb.Close()
		return nil, fmt.Errorf("cannot migrate schema: %w", err)
	}

	return sqlDb, nil
}

func newService(config Config) (*service, error) {
	location, err := time.LoadLocation(config.CacheTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid cache timezone: %w", err)
	}

	policy, err := app.NewValidationPolicy(config.CacheMaxAgeDays, location)
	if err != nil {
		return nil, fmt.Errorf("invalid validation policy: %w", err)
	}

	mapper, err := app.NewFeedMapper(config.FeedFormat)
	if err != nil {
		return nil, err
	}

	s := &service{}

	var feedStore app.FeedStore
	switch config.Store {
	case storeSQLite:
		s.db, err = InitDatabase(config.DatabaseDirectory)
		if err != nil {
			return nil, err
		}
		feedStore = adapters.NewSQLiteFeedStore(s.db)
	case storeMemory:
		feedStore = adapters.NewInMemoryFeedStore()
	default:
		return nil, fmt.Errorf("unknown store '%s'", config.Store)
	}

	s.imageCache, err = custom_cache.New(custom_cache.Config{
		Backend:   config.ImageCache,
		RedisAddr: config.RedisAddr,
		MaxSizeMB: config.ImageCacheMaxMB,
	})
	if err != nil {
		return nil, multierror.Append(err, s.closeDB())
	}

	s.app, err = app.NewApp(app.Config{
		FeedURL:          config.FeedURL,
		BaseURL:          config.BaseURL,
		Mapper:           mapper,
		Policy:           policy,
		ImagesLocalFirst: config.ImagesLocalFirst,
	}, adapters.NewHTTPClient(config.HTTPTimeout, config.HTTPMaxBodyBytes), feedStore, adapters.NewCacheImageDataStore(s.imageCache))
	if err != nil {
		return nil, multierror.Append(err, s.imageCache.Close(), s.closeDB())
	}

	s.health, err = CreateHealthCheck(config, s.db, s.imageCache)
	if err != nil {
		return nil, multierror.Append(err, s.Close())
	}

	return s, nil
}

func (s *service) closeDB() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func run(ctx context.Context, config Config) error {
	s, err := newService(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("[ERROR] failed to close resources: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           handlers.NewRouter(s.app.Feed, s.app, s.health.HandlerFunc, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	timer := ports.NewCacheValidationTimer(s.app, config.ValidateInterval, ports.DefaultShutdownTimeout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[INFO] listening on %s", config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server terminated: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return timer.Run(ctx)
	})

	return g.Wait()
}

func main() {
	ConfigureLogging()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("[FATAL] couldn't process envconfig: %v", err)
	}
	log.Printf("[INFO] Running VERSION %s:\n - FEED_URL=%s\n - STORE=%s\n - IMAGE_CACHE=%s\n\n", config.Version, config.FeedURL, config.Store, config.ImageCache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
}
