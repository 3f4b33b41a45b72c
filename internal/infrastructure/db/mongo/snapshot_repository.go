package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

const (
	collectionSnapshots = "snapshots"
	currentSnapshotID   = "current"
)

// SnapshotRepository keeps a single "current" snapshot document.
type SnapshotRepository struct {
	col *mongo.Collection
}

func NewSnapshotRepository(db *mongo.Database) *SnapshotRepository {
	return &SnapshotRepository{col: db.Collection(collectionSnapshots)}
}

type snapshotDocument struct {
	ID       string          `bson:"_id"`
	Snapshot domain.Snapshot `bson:",inline"`
}

// SaveSnapshot replaces the stored snapshot, creating it on first save.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, s domain.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := snapshotDocument{ID: currentSnapshotID, Snapshot: s}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": currentSnapshotID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot or domain.ErrSnapshotNotFound.
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc snapshotDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": currentSnapshotID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return doc.Snapshot, nil
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)
