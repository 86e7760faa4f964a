package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

const eventCollection = "load_events"

type MongoEventRepository struct {
	loads  *mongo.Collection
	events *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *MongoEventRepository {
	return &MongoEventRepository{
		loads:  db.Collection(loadCollection),
		events: db.Collection(eventCollection),
	}
}

func (r *MongoEventRepository) UpdateLoadStatus(ctx context.Context, reference string, status domain.LoadStatus, ts time.Time, source string) error {
	entry := domain.LoadStatusEntry{
		Status:    status,
		Timestamp: ts,
		Notes:     source,
	}
	res, err := r.loads.UpdateOne(ctx,
		bson.M{"reference_number": reference},
		bson.M{
			"$set":  bson.M{"status": status},
			"$push": bson.M{"status_history": entry},
		},
	)
	if err != nil {
		return fmt.Errorf("update load status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrLoadNotFound
	}
	return nil
}

func (r *MongoEventRepository) InsertEvent(ctx context.Context, event *domain.LoadEvent) error {
	doc := bson.M{
		"reference_number": event.ReferenceNumber,
		"status":           event.Status,
		"timestamp":        event.Timestamp,
		"source":           event.Source,
		"received_at":      time.Now().UTC(),
	}
	if event.Notes != "" {
		doc["notes"] = event.Notes
	}
	if _, err := r.events.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
