package ports

import (
	"context"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

// EventHandler runs once per delivered event. Returned errors are logged by
// the bus and never reach the publisher.
type EventHandler func(ctx context.Context, env domain.Envelope) error

// Publisher emits events. Emission is fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// EventBus delivers each published event to every handler registered for its
// type and to every listener, each in its own invocation.
type EventBus interface {
	Publisher
	Subscribe(t domain.EventType, h EventHandler)
	SubscribeAll(h EventHandler)
}
