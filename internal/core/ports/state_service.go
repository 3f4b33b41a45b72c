package ports

import (
	"context"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

// StateService exposes the application state built from the event stream.
type StateService interface {
	Snapshot() domain.Snapshot
	Recent(ctx context.Context, limit int) ([]domain.Envelope, error)
}
