package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

const (
	recentCapacity = 500
	defaultRecent  = 50
)

// StateService reduces the event stream into the current application state
// and keeps the most recent envelopes. Both repositories are optional.
type StateService struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	recent   []domain.Envelope
	saveMu   sync.Mutex

	events    ports.EventRepository
	snapshots ports.SnapshotRepository
	log       zerolog.Logger
}

// NewStateService returns a StateService. Pass nil repositories to keep state in memory only.
func NewStateService(events ports.EventRepository, snapshots ports.SnapshotRepository, log zerolog.Logger) *StateService {
	return &StateService{
		recent:    make([]domain.Envelope, 0, 64),
		events:    events,
		snapshots: snapshots,
		log:       log.With().Str("component", "state").Logger(),
	}
}

// Register attaches the service to every event on the bus.
func (s *StateService) Register(bus ports.EventBus) {
	bus.SubscribeAll(s.Apply)
}

// Restore loads the persisted snapshot, if any.
func (s *StateService) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.LoadSnapshot(ctx)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.log.Info().Time("updated_at", snap.UpdatedAt).Msg("snapshot restored")
	return nil
}

// Apply folds one envelope into the state. Persistence failures are logged
// and do not fail the call.
func (s *StateService) Apply(ctx context.Context, env domain.Envelope) error {
	at := env.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	s.mu.Lock()
	s.snapshot = s.snapshot.Apply(env.Payload, at)
	s.recent = append(s.recent, env)
	if len(s.recent) > recentCapacity {
		s.recent = s.recent[len(s.recent)-recentCapacity:]
	}
	s.mu.Unlock()

	if s.events != nil {
		if err := s.events.InsertEvent(ctx, env); err != nil {
			s.log.Warn().Err(err).Str("event_id", env.ID).Str("type", string(env.Type)).Msg("failed to journal event")
		}
	}
	if s.snapshots != nil {
		// Saves are serialised and always write the latest state.
		s.saveMu.Lock()
		err := s.snapshots.SaveSnapshot(ctx, s.Snapshot())
		s.saveMu.Unlock()
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", env.ID).Msg("failed to save snapshot")
		}
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *StateService) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Recent returns at most limit envelopes, newest first. The journal is
// preferred; memory is the fallback when it is absent or failing.
func (s *StateService) Recent(ctx context.Context, limit int) ([]domain.Envelope, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	if limit > recentCapacity {
		limit = recentCapacity
	}

	if s.events != nil {
		list, err := s.events.ListEvents(ctx, limit)
		if err == nil {
			return list, nil
		}
		s.log.Warn().Err(err).Msg("failed to read journal, falling back to memory")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.recent)
	if limit > n {
		limit = n
	}
	out := make([]domain.Envelope, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

var _ ports.StateService = (*StateService)(nil)
