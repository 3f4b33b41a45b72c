package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/api/metrics"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// DefaultRefreshDelay is the pause between weather data arriving and the next
// drone position request.
const DefaultRefreshDelay = 3500 * time.Millisecond

// step performs one handler's work and returns the event to emit, or nil.
type step func(ctx context.Context, ev domain.Event) (domain.Event, error)

// Orchestrator binds the five refresh-loop handlers to an event bus. It holds
// no mutable state; every delivered event runs an independent sequence.
type Orchestrator struct {
	api   ports.WeatherAPI
	bus   ports.EventBus
	delay time.Duration
	after func(time.Duration) <-chan time.Time
	log   zerolog.Logger
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRefreshDelay overrides DefaultRefreshDelay. Non-positive values are ignored.
func WithRefreshDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithTimer replaces time.After for the refresh delay.
func WithTimer(after func(time.Duration) <-chan time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if after != nil {
			o.after = after
		}
	}
}

// NewOrchestrator returns an Orchestrator. Call Register to attach it to the bus.
func NewOrchestrator(api ports.WeatherAPI, bus ports.EventBus, log zerolog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:   api,
		bus:   bus,
		delay: DefaultRefreshDelay,
		after: time.After,
		log:   log.With().Str("component", "orchestrator").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RefreshDelay returns the configured delay.
func (o *Orchestrator) RefreshDelay() time.Duration { return o.delay }

// Register subscribes one handler per handled event type.
func (o *Orchestrator) Register() {
	o.bus.Subscribe(domain.TypeFetchWeather, o.handle(domain.TypeFetchWeather, o.fetchWeather))
	o.bus.Subscribe(domain.TypeWeatherIDReceived, o.handle(domain.TypeWeatherIDReceived, o.weatherByID))
	o.bus.Subscribe(domain.TypeWeatherDataReceived, o.handle(domain.TypeWeatherDataReceived, o.scheduleDroneFetch))
	o.bus.Subscribe(domain.TypeFetchDroneData, o.handle(domain.TypeFetchDroneData, o.fetchDrone))
	o.bus.Subscribe(domain.TypeDroneDataReceived, o.handle(domain.TypeDroneDataReceived, o.droneDataReceived))
}

func (o *Orchestrator) handle(t domain.EventType, s step) ports.EventHandler {
	return func(ctx context.Context, env domain.Envelope) error {
		next, err := s(ctx, env.Payload)
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		if next == nil {
			return nil
		}
		if ae, ok := next.(domain.APIError); ok {
			code := "none"
			if ae.HasCode() {
				code = strconv.Itoa(ae.Code)
			}
			metrics.APIErrorsTotal.WithLabelValues(code).Inc()
			o.log.Warn().
				Str("trigger", string(t)).
				Str("event_id", env.ID).
				Int("code", ae.Code).
				Str("message", ae.Message).
				Msg("lookup failed")
		}
		if err := o.bus.Publish(ctx, next); err != nil {
			return fmt.Errorf("%s: publish %s: %w", t, next.Type(), err)
		}
		return nil
	}
}

func (o *Orchestrator) fetchWeather(ctx context.Context, ev domain.Event) (domain.Event, error) {
	e, ok := ev.(domain.FetchWeather)
	if !ok {
		return nil, fmt.Errorf("%w: %T", domain.ErrUnexpectedEvent, ev)
	}
	return o.locate(ctx, e.Latitude, e.Longitude), nil
}

func (o *Orchestrator) weatherByID(ctx context.Context, ev domain.Event) (domain.Event, error) {
	e, ok := ev.(domain.WeatherIDReceived)
	if !ok {
		return nil, fmt.Errorf("%w: %T", domain.ErrUnexpectedEvent, ev)
	}

	start := time.Now()
	w, err := o.api.FindWeatherByID(ctx, e.ID)
	metrics.APICallDuration.WithLabelValues("weather").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APICallsTotal.WithLabelValues("weather", "error").Inc()
		return domain.APIErrorFrom(err), nil
	}
	if w == nil {
		metrics.APICallsTotal.WithLabelValues("weather", "empty").Inc()
		return domain.APIError{Message: "empty weather response"}, nil
	}
	metrics.APICallsTotal.WithLabelValues("weather", "ok").Inc()

	o.log.Debug().Int("woeid", e.ID).Str("title", w.Title).Msg("weather received")
	return domain.WeatherDataReceived{Data: *w}, nil
}

// scheduleDroneFetch waits the refresh delay, then asks for the drone position.
// Only bus shutdown interrupts the wait.
func (o *Orchestrator) scheduleDroneFetch(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if _, ok := ev.(domain.WeatherDataReceived); !ok {
		return nil, fmt.Errorf("%w: %T", domain.ErrUnexpectedEvent, ev)
	}

	select {
	case <-ctx.Done():
		o.log.Debug().Msg("refresh cancelled")
		return nil, nil
	case <-o.after(o.delay):
	}

	metrics.RefreshCyclesTotal.Inc()
	return domain.FetchDroneData{}, nil
}

func (o *Orchestrator) fetchDrone(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if _, ok := ev.(domain.FetchDroneData); !ok {
		return nil, fmt.Errorf("%w: %T", domain.ErrUnexpectedEvent, ev)
	}

	start := time.Now()
	d, err := o.api.FindDroneLocation(ctx)
	metrics.APICallDuration.WithLabelValues("drone").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APICallsTotal.WithLabelValues("drone", "error").Inc()
		return domain.APIErrorFrom(err), nil
	}
	if d == nil {
		metrics.APICallsTotal.WithLabelValues("drone", "empty").Inc()
		return domain.APIError{Message: "empty drone response"}, nil
	}
	metrics.APICallsTotal.WithLabelValues("drone", "ok").Inc()

	return domain.DroneDataReceived{Data: *d}, nil
}

func (o *Orchestrator) droneDataReceived(ctx context.Context, ev domain.Event) (domain.Event, error) {
	e, ok := ev.(domain.DroneDataReceived)
	if !ok {
		return nil, fmt.Errorf("%w: %T", domain.ErrUnexpectedEvent, ev)
	}

	r, ok := e.Data.Latest()
	if !ok {
		return domain.APIError{Message: "drone data has no readings"}, nil
	}
	return o.locate(ctx, r.Latitude, r.Longitude), nil
}

// locate resolves a coordinate to the woeid of its nearest location.
func (o *Orchestrator) locate(ctx context.Context, lat, lng float64) domain.Event {
	start := time.Now()
	locs, err := o.api.FindLocationByLatLng(ctx, lat, lng)
	metrics.APICallDuration.WithLabelValues("locate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APICallsTotal.WithLabelValues("locate", "error").Inc()
		return domain.APIErrorFrom(err)
	}
	if len(locs) == 0 || locs[0].WOEID == 0 {
		metrics.APICallsTotal.WithLabelValues("locate", "empty").Inc()
		return domain.APIError{}
	}
	metrics.APICallsTotal.WithLabelValues("locate", "ok").Inc()

	o.log.Debug().
		Float64("lat", lat).
		Float64("lng", lng).
		Int("woeid", locs[0].WOEID).
		Msg("location resolved")
	return domain.WeatherIDReceived{ID: locs[0].WOEID}
}
