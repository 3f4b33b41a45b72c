package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

const collectionEvents = "orchestrator_events"

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	col *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(collectionEvents)}
}

type eventDocument struct {
	EventID    string    `bson:"event_id"`
	Type       string    `bson:"type"`
	OccurredAt time.Time `bson:"occurred_at"`
	Payload    bson.Raw  `bson:"payload"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toEventDocument(env domain.Envelope, now time.Time) (eventDocument, error) {
	payload, err := bson.Marshal(env.Payload)
	if err != nil {
		return eventDocument{}, fmt.Errorf("encode %s payload: %w", env.Type, err)
	}
	return eventDocument{
		EventID:    env.ID,
		Type:       string(env.Type),
		OccurredAt: env.OccurredAt.UTC(),
		Payload:    payload,
		RecordedAt: now.UTC(),
	}, nil
}

func (d eventDocument) envelope() (domain.Envelope, error) {
	t := domain.EventType(d.Type)
	payload, err := domain.DecodeEvent(t, func(v any) error {
		if len(d.Payload) == 0 {
			return nil
		}
		return bson.Unmarshal(d.Payload, v)
	})
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{
		ID:         d.EventID,
		Type:       t,
		OccurredAt: d.OccurredAt.UTC(),
		Payload:    payload,
	}, nil
}

// InsertEvent appends an envelope to the journal.
func (r *EventRepository) InsertEvent(ctx context.Context, env domain.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toEventDocument(env, time.Now())
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit envelopes, newest first.
func (r *EventRepository) ListEvents(ctx context.Context, limit int) ([]domain.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list events: decode: %w", err)
	}

	out := make([]domain.Envelope, 0, len(docs))
	for _, d := range docs {
		env, err := d.envelope()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		out = append(out, env)
	}
	return out, nil
}

// EnsureIndexes creates the indexes ListEvents relies on.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.EventRepository = (*EventRepository)(nil)
