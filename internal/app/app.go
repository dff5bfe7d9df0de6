// Package app wires configuration, storage, messaging and the application
// layer into one value shared by the CLI and the API server.
//
// Startup order:
//
//	config → logger → school timezone → snapshot storage (+ redis cache)
//	→ metrics → event bus (+ redis fan-out) → workspace → handlers
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/eventhandler"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/infrastructure/auth"
	"github.com/lhtc/classpoint/internal/infrastructure/identity"
	"github.com/lhtc/classpoint/internal/infrastructure/messaging"
	"github.com/lhtc/classpoint/internal/infrastructure/metrics"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/badger"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/postgres"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/redis"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/lhtc/classpoint/internal/interface/http"
	"github.com/lhtc/classpoint/internal/interface/http/handlers"
	"github.com/lhtc/classpoint/pkg/circuitbreaker"
	"github.com/lhtc/classpoint/pkg/logger"
	"github.com/lhtc/classpoint/pkg/retry"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// APP
// ══════════════════════════════════════════════════════════════════════════════

// App holds every long-lived component of a classpoint process.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Workspace *command.Workspace
	Store     *snapshot.Store

	// Command handlers (write side)
	Students *command.StudentHandler
	Classes  *command.ClassHandler
	Points   *command.PointsHandler
	Rewards  *command.RewardHandler

	// Query handlers (read side)
	ListClasses   *query.ListClassesHandler
	ListStudents  *query.ListStudentsHandler
	StudentDetail *query.StudentDetailHandler
	ListRewards   *query.ListRewardsHandler
	Leaderboard   *query.LeaderboardHandler
	Statistics    *query.ClassStatisticsHandler

	Accounts *auth.Accounts
	Metrics  *metrics.Metrics
	Health   *handlers.CompositeHealthChecker
	Bus      shared.EventBus
	LevelUps *eventhandler.OnLevelUpHandler

	// closers run in reverse order on Close.
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg *config.Config, out io.Writer) *logger.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logger.New(logger.Options{
		Output:    out,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.ParseFormat(cfg.Observability.LogFormat),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name), logger.String("version", cfg.App.Version))
}

// New wires the application. On error every component opened so far is
// closed again.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. School timezone
	// ─────────────────────────────────────────────────────────────────────────
	if err := timeutil.SetLocation(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Accounts and metrics
	// ─────────────────────────────────────────────────────────────────────────
	if a.Accounts, err = auth.ParseAccounts(cfg.Auth.Accounts); err != nil {
		return nil, err
	}
	a.Metrics = metrics.New()
	a.Health = handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Snapshot storage
	// ─────────────────────────────────────────────────────────────────────────
	kv, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	var cache *redis.Cache
	if cfg.Redis.Enabled {
		c, rerr := a.openRedis(ctx)
		if rerr != nil {
			log.Warn("redis unavailable, snapshot cache disabled", logger.Err(rerr))
		} else {
			cache = c
		}
	}
	if cache != nil {
		// The cache closes the redis client together with the primary store.
		breaker := circuitbreaker.CacheBreaker(a.Metrics.BreakerStateChanged)
		kv = redis.NewSnapshotCache(kv, cache, breaker, cfg.Redis.CacheTTL, log)
	}

	a.Store = snapshot.NewStore(kv,
		snapshot.WithLogger(log),
		snapshot.WithTimeout(cfg.Storage.Timeout),
		snapshot.WithRetrier(retry.SnapshotRetrier()),
	)
	a.onClose("storage", a.Store.Close)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	local := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
		Logger:         log,
		Observer:       a.Metrics.ObserveHandler,
	})
	a.onClose("event bus", local.Close)
	a.Bus = local

	if cache != nil && cfg.Features.IsEnabled(config.FeatureRedisFanout) {
		fanout, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:   messaging.NewGoRedisClient(cache),
			LocalBus: local,
			Breaker:  circuitbreaker.FanoutBreaker(a.Metrics.BreakerStateChanged),
			Logger:   log,
		})
		if err != nil {
			log.Warn("redis fan-out disabled", logger.Err(err))
		} else {
			a.onClose("redis fan-out", fanout.Close)
			a.Bus = fanout
		}
	}

	a.LevelUps, err = eventhandler.Register(a.Bus, eventhandler.Options{
		Features:     cfg.Features,
		LevelUpFlag:  config.FeatureLevelUpCelebrations,
		Logger:       log,
		ObserveEvent: a.Metrics.ObserveEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	a.Workspace = command.NewWorkspace(a.Store,
		command.WithPublisher(a.Bus),
		command.WithObserver(a.Metrics),
		command.WithLogger(log),
	)

	stamp := identity.NewUUIDStamper()
	a.Students = command.NewStudentHandler(a.Workspace, stamp, log)
	a.Classes = command.NewClassHandler(a.Workspace, stamp, log)
	a.Points = command.NewPointsHandler(a.Workspace, stamp, log)
	a.Rewards = command.NewRewardHandler(a.Workspace, stamp, log)

	a.ListClasses = query.NewListClassesHandler(a.Workspace)
	a.ListStudents = query.NewListStudentsHandler(a.Workspace)
	a.StudentDetail = query.NewStudentDetailHandler(a.Workspace)
	a.ListRewards = query.NewListRewardsHandler(a.Workspace)
	a.Leaderboard = query.NewLeaderboardHandler(a.Workspace, cfg.App.LeaderboardSize)
	a.Statistics = query.NewClassStatisticsHandler(a.Workspace)

	a.Health.AddCheck("snapshot", handlers.NewLoadCheck(func(ctx context.Context) error {
		_, err := a.Workspace.Snapshot(ctx)
		return err
	}))

	log.Info("classpoint ready",
		logger.String("storage", string(cfg.Storage.Driver)),
		logger.Bool("redis", cache != nil),
		logger.Bool("auth", a.Accounts.Enabled()),
	)
	return a, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Storage
// ──────────────────────────────────────────────────────────────────────────────

func (a *App) openStorage(ctx context.Context) (snapshot.KV, error) {
	cfg := a.Config
	log := a.Log.With(logger.Component("storage"))

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return snapshot.NewMemoryKV(), nil

	case config.StorageBadger:
		bcfg := badger.DefaultConfig(cfg.Storage.Path)
		bcfg.GCInterval = cfg.Storage.GCInterval
		bcfg.Logger = log
		kv, err := badger.OpenKV(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open badger at %s: %w", cfg.Storage.Path, err)
		}
		return kv, nil

	case config.StorageSQLite:
		kv, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite at %s: %w", cfg.Storage.Path, err)
		}
		return kv, nil

	case config.StoragePostgres:
		return a.openPostgres(ctx, log)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func (a *App) openPostgres(ctx context.Context, log *logger.Logger) (snapshot.KV, error) {
	db := a.Config.Database
	opts := postgres.DefaultPoolOptions()
	if db.MaxOpenConns > 0 {
		opts.MaxConns = int32(db.MaxOpenConns)
	}
	if db.MaxIdleConns >= 0 && int32(db.MaxIdleConns) <= opts.MaxConns {
		opts.MinConns = int32(db.MaxIdleConns)
	}
	opts.MaxConnLifetime = db.ConnMaxLifetime
	opts.MaxConnIdleTime = db.ConnMaxIdleTime

	retrier := retry.ConnectRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("postgres not ready, retrying",
			logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.Open(ctx, db.URL, opts)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	if status, err := migrator.Status(ctx); err == nil {
		applied := 0
		for _, m := range status {
			if m.Applied {
				applied++
			}
		}
		log.Info("postgres migrations applied", logger.Int("applied", applied), logger.Int("total", len(status)))
	}

	a.Health.AddCheck("postgres", handlers.NewPingCheck(conn))
	return postgres.NewSnapshotKV(conn), nil
}

func (a *App) openRedis(ctx context.Context) (*redis.Cache, error) {
	rc := a.Config.Redis
	cfg := redis.DefaultConfig()
	cfg.Host = rc.Host
	cfg.Port = rc.Port
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	cfg.PoolSize = rc.PoolSize
	cfg.MinIdleConns = rc.MinIdleConns
	cfg.DialTimeout = rc.DialTimeout
	cfg.ReadTimeout = rc.ReadTimeout
	cfg.WriteTimeout = rc.WriteTimeout

	cache, err := redis.NewCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Health.AddCheck("redis", handlers.NewPingCheck(cache))
	return cache, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// HTTP
// ──────────────────────────────────────────────────────────────────────────────

// HTTPServer builds the API server over the wired handlers.
func (a *App) HTTPServer() *httpserver.Server {
	h := a.Config.HTTP
	cfg := httpserver.DefaultConfig()
	cfg.Host = h.Host
	cfg.Port = h.Port
	cfg.ReadTimeout = h.ReadTimeout
	cfg.WriteTimeout = h.WriteTimeout
	cfg.IdleTimeout = h.IdleTimeout
	cfg.AllowedOrigins = h.AllowedOrigins
	cfg.MaxImportBytes = h.MaxImportBytes
	cfg.LogRequests = h.RequestsLogging
	cfg.Realm = a.Config.Auth.Realm
	cfg.Version = a.Config.App.Version

	deps := httpserver.Dependencies{
		Students:      a.Students,
		Classes:       a.Classes,
		Points:        a.Points,
		Rewards:       a.Rewards,
		ListClasses:   a.ListClasses,
		ListStudents:  a.ListStudents,
		StudentDetail: a.StudentDetail,
		ListRewards:   a.ListRewards,
		Leaderboard:   a.Leaderboard,
		Statistics:    a.Statistics,
		State:         a.Workspace,
		Accounts:      a.Accounts,
		Features:      a.Config.Features,
		HealthChecker: a.Health,
		Recovery:      a.Workspace,
		Logger:        a.Log,
	}
	if a.Config.Observability.MetricsEnabled {
		deps.Metrics = a.Metrics
	}
	return httpserver.NewServer(cfg, deps)
}

// Serve runs the API server until ctx is cancelled or the listener fails,
// then drains it within App.ShutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	return a.HTTPServer().Run(ctx, a.Config.App.ShutdownTimeout)
}

// ──────────────────────────────────────────────────────────────────────────────
// Shutdown
// ──────────────────────────────────────────────────────────────────────────────

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Close releases every component in reverse start order. Pending events
// are delivered before storage closes.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.Log.Warn("close failed", logger.String("component", c.name), logger.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
