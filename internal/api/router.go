// Package api exposes the orchestrator over HTTP.
package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dronewatch/drone-weather/internal/api/handler"
	"github.com/dronewatch/drone-weather/internal/api/middleware"
	"github.com/dronewatch/drone-weather/internal/api/stream"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// Deps holds what the router needs. Mongo, Redis and Hub may be nil.
type Deps struct {
	Log          zerolog.Logger
	Publisher    ports.Publisher
	State        ports.StateService
	RefreshDelay time.Duration
	Hub          *stream.Hub
	Mongo        *mongo.Database
	Redis        *redis.Client
	JWTSecret    string
	// Registerer receives the HTTP metrics; prometheus.DefaultRegisterer when nil.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "droneweather",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/stream"
		},
	}))

	// --- Probes and metrics (no auth required) ---
	health := handler.NewHealthHandler(d.Mongo, d.Redis)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	v1 := e.Group("/v1")

	// --- Commands ---
	commands := handler.NewCommandHandler(d.Publisher)
	var guard []echo.MiddlewareFunc
	if d.JWTSecret != "" {
		guard = append(guard, middleware.Auth(d.JWTSecret), middleware.RBAC(domain.RoleAdmin, domain.RoleOperator))
	}
	v1.POST("/weather", commands.FetchWeather, guard...)
	v1.POST("/drone/refresh", commands.RefreshDrone, guard...)

	// --- Queries ---
	state := handler.NewStateHandler(d.State, d.RefreshDelay)
	v1.GET("/state", state.Snapshot)
	v1.GET("/events", state.Events)
	if d.Hub != nil {
		v1.GET("/stream", d.Hub.Handle)
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
