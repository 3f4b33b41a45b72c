// Package eventbus is the in-process dispatcher between the orchestrator, the
// state projection and the outer surfaces (journal, live stream).
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/api/metrics"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// Bus delivers every published event to the handlers registered for its type
// and to every listener. Each delivery runs in its own goroutine, so
// invocations of the same handler may overlap; nothing is deduplicated.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[domain.EventType][]ports.EventHandler
	listeners []ports.EventHandler
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
	log zerolog.Logger
}

// New creates a Bus. Handlers run under context.Background until Start binds a root context.
func New(log zerolog.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		handlers: make(map[domain.EventType][]ports.EventHandler),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		log:      log.With().Str("component", "eventbus").Logger(),
	}
}

// Start binds handler invocations to ctx. Cancelling ctx interrupts
// in-flight handlers the same way Close does.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel()
	b.ctx, b.cancel = context.WithCancel(ctx)
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t domain.EventType, h ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, h)
}

// Publish wraps ev in an envelope and starts one invocation per handler and
// listener. It does not wait for them. The ctx argument is not propagated:
// invocations outlive the publisher and stop only with the bus.
func (b *Bus) Publish(_ context.Context, ev domain.Event) error {
	if ev == nil {
		return fmt.Errorf("publish: %w: nil event", domain.ErrUnexpectedEvent)
	}

	env := domain.Envelope{
		ID:         uuid.NewString(),
		Type:       ev.Type(),
		OccurredAt: b.now().UTC(),
		Payload:    ev,
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return domain.ErrBusClosed
	}
	targets := make([]ports.EventHandler, 0, len(b.handlers[env.Type])+len(b.listeners))
	targets = append(targets, b.handlers[env.Type]...)
	targets = append(targets, b.listeners...)
	ctx := b.ctx
	b.wg.Add(len(targets))
	b.mu.RUnlock()

	metrics.EventsPublishedTotal.WithLabelValues(string(env.Type)).Inc()
	b.log.Debug().Str("event_id", env.ID).Str("type", string(env.Type)).Int("targets", len(targets)).Msg("event published")

	for _, h := range targets {
		go b.run(ctx, h, env)
	}
	return nil
}

func (b *Bus) run(ctx context.Context, h ports.EventHandler, env domain.Envelope) {
	defer b.wg.Done()

	metrics.HandlersInFlight.Inc()
	start := time.Now()
	defer func() {
		metrics.HandlersInFlight.Dec()
		metrics.HandlerDuration.WithLabelValues(string(env.Type)).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.HandlerErrorsTotal.WithLabelValues(string(env.Type)).Inc()
			b.log.Error().
				Str("event_id", env.ID).
				Str("type", string(env.Type)).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()

	if err := h(ctx, env); err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues(string(env.Type)).Inc()
		b.log.Error().Err(err).
			Str("event_id", env.ID).
			Str("type", string(env.Type)).
			Msg("event handling failed")
	}
}

// Close rejects further publications, cancels the root context and waits for
// in-flight invocations to return.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

var _ ports.EventBus = (*Bus)(nil)
