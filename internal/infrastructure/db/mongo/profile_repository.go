package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

const profileCollection = "profiles"

type MongoProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *MongoProfileRepository {
	return &MongoProfileRepository{coll: db.Collection(profileCollection)}
}

type mongoProfile struct {
	ID             string `bson:"_id"`
	Email          string `bson:"email"`
	PasswordHash   string `bson:"password_hash"`
	Role           string `bson:"role"`
	OrganizationID string `bson:"organization_id,omitempty"`
	FirstName      string `bson:"first_name,omitempty"`
	LastName       string `bson:"last_name,omitempty"`
	EmailVerified  bool   `bson:"email_verified"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func (r *MongoProfileRepository) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	doc := mongoProfile{
		ID:             uuid.NewString(),
		Email:          p.Email,
		PasswordHash:   p.PasswordHash,
		Role:           string(p.Role),
		OrganizationID: p.OrganizationID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		EmailVerified:  p.EmailVerified,
		CreatedAt:      p.CreatedAt.Unix(),
		UpdatedAt:      p.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrProfileExists
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	return r.FindByID(ctx, doc.ID)
}

func (r *MongoProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoProfileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoProfileRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": string(role), "updated_at": time.Now().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *MongoProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.Profile, error) {
	var mp mongoProfile
	if err := r.coll.FindOne(ctx, filter).Decode(&mp); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	return &domain.Profile{
		ID:             mp.ID,
		Email:          mp.Email,
		PasswordHash:   mp.PasswordHash,
		Role:           domain.Role(mp.Role),
		OrganizationID: mp.OrganizationID,
		FirstName:      mp.FirstName,
		LastName:       mp.LastName,
		EmailVerified:  mp.EmailVerified,
		CreatedAt:      time.Unix(mp.CreatedAt, 0).UTC(),
		UpdatedAt:      time.Unix(mp.UpdatedAt, 0).UTC(),
	}, nil
}
