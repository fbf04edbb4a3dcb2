package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"shoplist-go/internal/config"
	"shoplist-go/internal/db"
	shoppingdomain "shoplist-go/internal/domain/shopping"
	"shoplist-go/internal/metrics"
	"shoplist-go/internal/realtime"
	"shoplist-go/internal/repository/inmemory"
	mongoshopping "shoplist-go/internal/repository/mongo/shopping"
	postgresshopping "shoplist-go/internal/repository/postgres/shopping"
	"shoplist-go/internal/transport/httpserver"
	"shoplist-go/internal/transport/httpserver/handler"
	commonhandler "shoplist-go/internal/transport/httpserver/handler/common"
	shoppinghandler "shoplist-go/internal/transport/httpserver/handler/shopping"
	"shoplist-go/pkg/logger"
)

type Options struct {
	// SkipMigrations leaves the postgres schema untouched on startup.
	SkipMigrations bool
}

type App struct {
	cfg        config.Config
	log        logger.Logger
	httpServer *http.Server
	guard      *shoppingdomain.ArchiveGuard
	fanout     *realtime.Fanout
	closers    []func() error
	wg         sync.WaitGroup
}

type store struct {
	repo   shoppingdomain.Repository
	checks map[string]commonhandler.HealthCheck
	close  func() error
}

func New(ctx context.Context, log logger.Logger, opts Options) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	log.Info("app: initializing store", "driver", cfg.StoreDriver)
	st, err := openStore(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)

	log.Info("app: initializing realtime", "relay", cfg.Realtime.RelayDriver)
	relay, err := openRelay(ctx, cfg.Realtime, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	hub := realtime.NewHub(cfg.AllowedOrigins, cfg.Realtime.SendBuffer, log.With("component", "realtime"))
	a.fanout = realtime.NewFanout(hub, relay, log.With("component", "realtime"))

	a.guard = shoppingdomain.NewArchiveGuard(cfg.Archive.SuppressWindow, cfg.Archive.CleanupDelay)
	service := shoppingdomain.NewService(st.repo, a.guard,
		shoppingdomain.WithPublisher(a.fanout),
		shoppingdomain.WithMetrics(metrics.Workflow{}),
		shoppingdomain.WithLogger(log.With("component", "shopping")),
		shoppingdomain.WithUniqueNames(cfg.UniqueNames),
	)

	if _, err := service.EnsureActiveList(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("initialize active list: %w", err)
	}

	log.Info("app: initializing router")
	handlers := handler.New(
		commonhandler.New(st.checks, log),
		shoppinghandler.New(service, log),
	)
	router := httpserver.NewRouter(cfg, handlers, hub)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(cfg, router)

	return a, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Start launches the guard sweeper and the relay subscriber. Both stop when
// ctx is done.
func (a *App) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.guard.Run(ctx, a.cfg.Archive.SweepInterval, func(remaining int) {
			metrics.GuardSlots.Set(float64(remaining))
		})
	}()
	go func() {
		defer a.wg.Done()
		if err := a.fanout.Run(ctx); err != nil {
			a.log.Error("realtime.relay: subscription stopped", "err", err)
		}
	}()
}

// Close releases every resource. Call it after the context given to Start
// is done.
func (a *App) Close() error {
	var errs []error
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close realtime: %w", err))
		}
	}
	a.wg.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config, log logger.Logger, opts Options) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("app: using in-memory store, data is lost on restart")
		return &store{
			repo:   inmemory.NewShoppingRepository(),
			checks: map[string]commonhandler.HealthCheck{},
			close:  func() error { return nil },
		}, nil

	case config.StoreDriverMongo:
		client, database, err := db.NewMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		repo := mongoshopping.NewMongo(database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &store{
			repo: repo,
			checks: map[string]commonhandler.HealthCheck{
				"store": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			},
			close: func() error { return client.Disconnect(context.Background()) },
		}, nil

	default:
		dbConn, err := db.NewPostgres(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := dbConn.DB()
		if err != nil {
			return nil, err
		}
		if !opts.SkipMigrations {
			if _, err := db.Migrate(dbConn, log); err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return &store{
			repo: postgresshopping.NewPostgres(dbConn),
			checks: map[string]commonhandler.HealthCheck{
				"store": sqlDB.PingContext,
			},
			close: sqlDB.Close,
		}, nil
	}
}

func openRelay(ctx context.Context, cfg config.RealtimeConfig, log logger.Logger) (realtime.Relay, error) {
	switch cfg.RelayDriver {
	case config.RelayDriverRedis:
		return realtime.NewRedisRelay(ctx, cfg.RedisURL, cfg.RelayChannel, log)
	case config.RelayDriverRabbitMQ:
		return realtime.NewRabbitMQRelay(cfg.RabbitMQURL, cfg.RelayChannel, log)
	default:
		return nil, nil
	}
}
