package ports

import (
	"context"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

// EventRepository is the append-only event journal.
type EventRepository interface {
	InsertEvent(ctx context.Context, env domain.Envelope) error
	// ListEvents returns at most limit envelopes, newest first.
	ListEvents(ctx context.Context, limit int) ([]domain.Envelope, error)
}

// SnapshotRepository keeps the latest application state across restarts.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, s domain.Snapshot) error
	// LoadSnapshot returns domain.ErrSnapshotNotFound when nothing is stored.
	LoadSnapshot(ctx context.Context) (domain.Snapshot, error)
}
