// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wpitallo/crawlee/internal/adaptive"
	"github.com/wpitallo/crawlee/internal/browser"
	"github.com/wpitallo/crawlee/internal/config"
	"github.com/wpitallo/crawlee/internal/fetch"
	"github.com/wpitallo/crawlee/internal/prediction"
	"github.com/wpitallo/crawlee/internal/ratelimit"
	"github.com/wpitallo/crawlee/internal/store"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	DB          *store.DB
	Queue       *store.RequestQueue
	Dataset     *store.Dataset
	RateLimiter ratelimit.RateLimiter
	Fetcher     *fetch.Client
	Predictor   prediction.Predictor

	// Browser pool is created lazily: static-only crawls never pay for a
	// browser launch.
	browserPool *browser.Pool
	poolMu      sync.Mutex

	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Opens the storage database and its request queue and dataset
//   - Creates the per-domain rate limiter
//   - Creates the HTTP fetch client
//   - Creates the rendering-type predictor
//
// The browser pool is not started here; it launches on first use via the
// render executor's pool provider. If any step fails, an error is returned
// and already-opened resources are released.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := setupLogger(cfg)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	queue := store.NewRequestQueue(db)
	dataset := store.NewDataset(db)
	logger.Debug().
		Str("path", cfg.DatabasePath()).
		Msg("Storage initialized")

	rateLimiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	fetcher, err := fetch.New(fetch.Options{
		Timeout:     cfg.HTTPTimeout,
		UserAgent:   cfg.UserAgent,
		Headers:     cfg.Headers,
		Proxy:       cfg.Proxy,
		SessionName: cfg.SessionName,
		Limiter:     rateLimiter,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create fetch client: %w", err)
	}
	logger.Debug().
		Dur("timeout", cfg.HTTPTimeout).
		Msg("Fetch client initialized")

	predictor := prediction.NewMemoryPredictor(cfg.DetectionRatio, 0)
	logger.Debug().
		Float64("detection_ratio", cfg.DetectionRatio).
		Msg("Rendering predictor initialized")

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		DB:          db,
		Queue:       queue,
		Dataset:     dataset,
		RateLimiter: rateLimiter,
		Fetcher:     fetcher,
		Predictor:   predictor,
		startTime:   time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	logLevel := zerolog.ErrorLevel // default: suppress non-verbose info logs
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	// Treat "info" as non-verbose (don't display info logs unless -v is used)
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// NewCrawler assembles the adaptive crawler around the given extraction
// handler, wiring the dry runner, the lazily-started render executor, and the
// dataset sink.
func (a *Application) NewCrawler(handler adaptive.Handler) (*adaptive.Crawler, error) {
	cfg := a.Config

	dryRunner := adaptive.NewDryRunner(a.Fetcher, cfg.HandlerTimeout, cfg.LinkSelector)
	renderer := adaptive.NewRenderExecutor(a.poolProvider(), a.Dataset, a.Queue, cfg.LinkSelector)

	return adaptive.New(adaptive.Options{
		Handler:    handler,
		Predictor:  a.Predictor,
		Simulator:  dryRunner,
		Renderer:   renderer,
		Classifier: adaptive.NewDefaultClassifier(cfg.ChangeRatioThreshold, cfg.MutationThreshold),
		Validator:  adaptive.DefaultValidator,
		Data:       a.Dataset,
	})
}

// poolProvider returns the shared browser pool, starting it on first call.
func (a *Application) poolProvider() adaptive.PoolProvider {
	return func() (*browser.Pool, error) {
		a.poolMu.Lock()
		defer a.poolMu.Unlock()

		if a.browserPool != nil {
			return a.browserPool, nil
		}

		a.Logger.Debug().Msg("Initializing browser pool on demand")
		pool, err := browser.NewPool(browser.Options{
			Size:        a.Config.BrowserPoolSize,
			Headless:    a.Config.BrowserHeadless,
			ChromePath:  a.Config.ChromePath,
			UserAgent:   a.Config.UserAgent,
			Proxy:       a.Config.Proxy,
			SessionName: a.Config.SessionName,
			PageTimeout: a.Config.PageTimeout,
			Limiter:     a.RateLimiter,
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to create browser pool on demand")
			return nil, err
		}

		a.browserPool = pool
		a.Logger.Info().Int("pool_size", a.Config.BrowserPoolSize).Msg("Browser pool initialized on demand")
		return pool, nil
	}
}

// Close gracefully shuts down the application and all its resources.
//
// Cleanup order: browser pool first (interrupts running renders), then the
// fetch client's idle connections, then the storage database. Errors during
// shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	a.poolMu.Lock()
	if a.browserPool != nil {
		a.browserPool.Close()
		a.browserPool = nil
	}
	a.poolMu.Unlock()

	if a.Fetcher != nil {
		a.Fetcher.Close()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing storage")
		}
	}

	uptime := time.Since(a.startTime)
	a.Logger.Info().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
