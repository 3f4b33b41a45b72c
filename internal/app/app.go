// Package app wires configuration, storage, the event bus and the HTTP
// surface into a runnable orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dronewatch/drone-weather/internal/api"
	"github.com/dronewatch/drone-weather/internal/api/stream"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
	"github.com/dronewatch/drone-weather/internal/core/service"
	"github.com/dronewatch/drone-weather/internal/infrastructure/config"
	mongorepo "github.com/dronewatch/drone-weather/internal/infrastructure/db/mongo"
	redisstore "github.com/dronewatch/drone-weather/internal/infrastructure/db/redis"
	"github.com/dronewatch/drone-weather/internal/infrastructure/eventbus"
	"github.com/dronewatch/drone-weather/internal/infrastructure/weatherapi"
)

const shutdownTimeout = 10 * time.Second

// App holds the running components.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	Bus          *eventbus.Bus
	State        *service.StateService
	Orchestrator *service.Orchestrator
	Hub          *stream.Hub

	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	redis       *goredis.Client
}

// New connects the optional stores and registers every bus subscriber. The
// bus is bound to ctx; cancelling it stops in-flight handlers.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	var upstream ports.WeatherAPI = weatherapi.NewClient(weatherapi.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
	})

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		upstream = weatherapi.NewCachedClient(upstream, redisstore.NewLocationCache(rdb, cfg.Redis.LocationTTL), log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("location cache enabled")
	}

	var (
		events    ports.EventRepository
		snapshots ports.SnapshotRepository
	)
	if cfg.Mongo.URI != "" {
		client, db, err := mongorepo.Connect(ctx, mongorepo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			a.closeStores(ctx)
			return nil, err
		}
		a.mongoClient, a.mongoDB = client, db

		journal := mongorepo.NewEventRepository(db)
		if err := journal.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure journal indexes")
		}
		events, snapshots = journal, mongorepo.NewSnapshotRepository(db)
		log.Info().Str("database", cfg.Mongo.Database).Msg("event journal enabled")
	}

	a.Bus = eventbus.New(log)
	a.Bus.Start(ctx)

	a.State = service.NewStateService(events, snapshots, log)
	if err := a.State.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore snapshot, starting empty")
	}
	a.State.Register(a.Bus)

	a.Orchestrator = service.NewOrchestrator(upstream, a.Bus, log, service.WithRefreshDelay(cfg.RefreshDelay))
	a.Orchestrator.Register()

	a.Hub = stream.NewHub(a.State.Snapshot, log)
	a.Hub.Register(a.Bus)

	return a, nil
}

// Publish emits ev on the bus.
func (a *App) Publish(ctx context.Context, ev domain.Event) error {
	return a.Bus.Publish(ctx, ev)
}

// Router builds the HTTP surface.
func (a *App) Router() *echo.Echo {
	return api.NewRouter(api.Deps{
		Log:          a.log,
		Publisher:    a.Bus,
		State:        a.State,
		RefreshDelay: a.Orchestrator.RefreshDelay(),
		Hub:          a.Hub,
		Mongo:        a.mongoDB,
		Redis:        a.redis,
		JWTSecret:    a.cfg.JWTSecret,
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	e := a.Router()
	addr := ":" + a.cfg.Port

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Bool("auth", a.cfg.AuthEnabled()).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close stops the bus, waits for in-flight handlers and disconnects the stores.
func (a *App) Close(ctx context.Context) error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	a.closeStores(ctx)
	return nil
}

func (a *App) closeStores(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
}
