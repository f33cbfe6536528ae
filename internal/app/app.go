package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"header-rules/internal/analytics"
	"header-rules/internal/common/cache"
	"header-rules/internal/common/logging"
	"header-rules/internal/config"
	"header-rules/internal/converter"
	"header-rules/internal/locks"
	"header-rules/internal/models"
	"header-rules/internal/platform"
	"header-rules/internal/redis"
	"header-rules/internal/storage"
)

// Sync triggers
const (
	TriggerStartup  = "startup"
	TriggerFile     = "file"
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

const (
	syncLockKey    = "header-rules:sync-lock"
	syncLockTTL    = 30 * time.Second
	lastSyncKey    = "header-rules:last-sync"
	countersKey    = "header-rules:analytics"
	shutdownGrace  = 30 * time.Second
	watchDebounce  = 250 * time.Millisecond
	defaultTrigger = TriggerAPI
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Storage     storage.Store
	Host        platform.Host
	Syncer      *platform.Syncer
	Converter   *converter.Converter
	Cache       cache.Cache
	RedisClient *redis.Client
	Locks       *locks.Manager
	Stats       *analytics.MemoryRecorder
	Metrics     *analytics.Metrics
	Logger      logging.Logger

	syncMu   sync.Mutex
	lastMu   sync.RWMutex
	lastSync *models.SyncReport

	watcher    *Watcher
	scheduler  *Scheduler
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:     cfg,
		Logger:     logging.Component("app"),
		shutdownCh: make(chan struct{}),
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Err(err))
	}

	if err := app.initializeCache(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeEngine()

	return app, nil
}

func (app *App) initializeCache() error {
	cfg := cache.DefaultConfig()
	cfg.Type = cache.Type(app.Config.CacheType)
	cfg.TTL = app.Config.CacheTTLDuration()
	cfg.FallbackToLocal = true
	if app.RedisClient != nil {
		cfg.RedisClient = app.RedisClient.Redis()
	}

	c, built, err := cache.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	if built != cfg.Type {
		app.Logger.Warn("Redis unavailable, falling back to local resolution cache",
			logging.String("cache_type", string(cfg.Type)))
	}
	app.Cache = c
	app.Logger.Info("Resolution cache ready", logging.String("type", string(built)))
	return nil
}

func (app *App) initializeEngine() {
	app.Stats = analytics.NewMemoryRecorder()
	app.Metrics = analytics.NewMetrics(app.Config.MetricsNamespace, nil)

	recorders := analytics.Multi{
		analytics.NewLogRecorder(logging.Component("analytics")),
		app.Stats,
		app.Metrics,
	}
	if app.RedisClient != nil {
		recorders = append(recorders, analytics.NewRedisRecorder(
			app.RedisClient,
			app.Config.AnalyticsChannel,
			countersKey,
			logging.Component("analytics"),
		))
	}

	app.Converter = converter.New(converter.Config{
		Cache:     app.Cache,
		CacheTTL:  app.Config.CacheTTLDuration(),
		Analytics: recorders,
		Monitor:   recorders,
		Logger:    logging.Component("converter"),
	})

	app.Host = platform.NewFileHost(app.Config.OutputPath)
	app.Syncer = platform.NewSyncer(app.Host, logging.Component("platform"))
}

// Start runs the first sync and starts the snapshot watcher and resync
// schedule. A failed first sync is logged; the watcher can still recover.
func (app *App) Start(ctx context.Context) error {
	if _, err := app.Sync(ctx, TriggerStartup); err != nil {
		app.Logger.Error("Initial sync failed", err)
	}

	if path, ok := app.watchPath(); ok && app.Config.WatchSnapshot {
		w, err := NewWatcher(path, watchDebounce, app.Logger)
		if err != nil {
			return err
		}
		app.watcher = w
		go func() {
			err := w.Watch(ctx, func() error {
				_, err := app.Sync(ctx, TriggerFile)
				return err
			})
			if err != nil {
				app.Logger.Error("Snapshot watcher stopped", err)
			}
		}()
	}

	if app.Config.ResyncSchedule != "" {
		s := NewScheduler(app.Config.ResyncSchedule, func(ctx context.Context) error {
			_, err := app.Sync(ctx, TriggerSchedule)
			return err
		}, app.Logger)
		if err := s.Start(ctx); err != nil {
			return err
		}
		app.scheduler = s
	}

	return nil
}

// watchPath returns the snapshot file when storage is file based
func (app *App) watchPath() (string, bool) {
	type pathed interface{ Path() string }
	if p, ok := app.Storage.(pathed); ok {
		return p.Path(), true
	}
	return "", false
}

// Shutdown stops background work
func (app *App) Shutdown(ctx context.Context) error {
	app.closeOnce.Do(func() { close(app.shutdownCh) })

	if app.scheduler != nil {
		app.scheduler.Stop()
		app.Logger.Info("Resync scheduler stopped")
	}
	if app.watcher != nil {
		if err := app.watcher.Stop(); err != nil {
			app.Logger.Warn("Error stopping snapshot watcher", logging.Err(err))
		} else {
			app.Logger.Info("Snapshot watcher stopped")
		}
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Storage != nil {
		app.Storage.Close()
	}
	if app.Locks != nil {
		app.Locks.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
