package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

const loadCollection = "loads"

type MongoLoadRepository struct {
	coll *mongo.Collection
}

func NewLoadRepository(db *mongo.Database) *MongoLoadRepository {
	return &MongoLoadRepository{coll: db.Collection(loadCollection)}
}

func (r *MongoLoadRepository) Create(ctx context.Context, l *domain.Load) error {
	doc := bson.M{
		"reference_number": l.ReferenceNumber,
		"organization_id":  l.OrganizationID,
		"customer_name":    l.CustomerName,
		"driver_id":        l.DriverID,
		"origin":           l.Origin,
		"destination":      l.Destination,
		"equipment":        l.Equipment,
		"rate_amount":      l.RateAmount,
		"rate_currency":    l.RateCurrency,
		"status":           l.Status,
		"pickup_date":      l.PickupDate,
		"delivery_date":    l.DeliveryDate,
		"created_at":       l.CreatedAt,
		"status_history":   l.StatusHistory,
	}
	if l.IdempotencyKey != "" {
		doc["idempotency_key"] = l.IdempotencyKey
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateLoad
		}
		return fmt.Errorf("insert load: %w", err)
	}
	return nil
}

func (r *MongoLoadRepository) FindByReference(ctx context.Context, reference string, orgID string) (*domain.Load, error) {
	filter := bson.M{"reference_number": reference}
	if orgID != "" {
		filter["organization_id"] = orgID
	}
	return r.findOne(ctx, filter)
}

func (r *MongoLoadRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Load, error) {
	return r.findOne(ctx, bson.M{"idempotency_key": key})
}

func (r *MongoLoadRepository) List(ctx context.Context, filter ports.ListLoadsFilter) ([]*domain.Load, int64, error) {
	query := bson.M{}
	if filter.OrganizationID != "" {
		query["organization_id"] = filter.OrganizationID
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Equipment != "" {
		query["equipment"] = filter.Equipment
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"reference_number": pattern},
			bson.M{"customer_name": pattern},
		}
	}
	dateRange := bson.M{}
	if !filter.DateFrom.IsZero() {
		dateRange["$gte"] = filter.DateFrom
	}
	if !filter.DateTo.IsZero() {
		dateRange["$lte"] = filter.DateTo
	}
	if len(dateRange) > 0 {
		query["pickup_date"] = dateRange
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count loads: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list loads: %w", err)
	}
	defer cursor.Close(ctx)

	var loads []*domain.Load
	for cursor.Next(ctx) {
		var l domain.Load
		if err := cursor.Decode(&l); err != nil {
			return nil, 0, fmt.Errorf("decode load: %w", err)
		}
		loads = append(loads, &l)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor: %w", err)
	}
	return loads, total, nil
}

func (r *MongoLoadRepository) AssignDriver(ctx context.Context, reference, driverID string, ts time.Time) error {
	entry := domain.LoadStatusEntry{
		Status:    domain.LoadAssigned,
		Timestamp: ts,
		Notes:     "driver " + driverID,
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"reference_number": reference},
		bson.M{
			"$set":  bson.M{"driver_id": driverID, "status": domain.LoadAssigned},
			"$push": bson.M{"status_history": entry},
		},
	)
	if err != nil {
		return fmt.Errorf("assign driver: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrLoadNotFound
	}
	return nil
}

func (r *MongoLoadRepository) findOne(ctx context.Context, filter bson.M) (*domain.Load, error) {
	var l domain.Load
	if err := r.coll.FindOne(ctx, filter).Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrLoadNotFound
		}
		return nil, fmt.Errorf("find load: %w", err)
	}
	return &l, nil
}
