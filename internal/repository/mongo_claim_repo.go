package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/timmy/veris/internal/domain"
)

const claimsCollection = "verified_claims"

// MongoClaimRepository stores verified claims as MongoDB documents keyed by
// the natural-key record ID.
type MongoClaimRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ ClaimStore = (*MongoClaimRepository)(nil)

// NewMongoClaimRepository connects to uri and ensures the natural-key index.
// Parameters:
//   - ctx: context bounding connect and index creation.
//   - uri: MongoDB connection string.
//   - database: database name.
// Returns:
//   - *MongoClaimRepository: connected repository.
//   - error: non-nil if connecting or indexing fails.
func NewMongoClaimRepository(ctx context.Context, uri, database string) (*MongoClaimRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(claimsCollection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "origin_url", Value: 1}, {Key: "claim_text", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_claims_natural_key"),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create claim indexes: %w", err)
	}

	return &MongoClaimRepository{client: client, coll: coll}, nil
}

// Upsert writes claim with an update-or-insert on its record ID. Verification
// fields go through $set; everything else, including created_at, only through
// $setOnInsert.
func (r *MongoClaimRepository) Upsert(ctx context.Context, claim *domain.VerifiedClaim) (string, error) {
	claim.ID = domain.ClaimRecordID(claim.OriginURL, claim.ClaimText)
	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now

	sources := claim.Sources
	if sources == nil {
		sources = domain.StringArray{}
	}

	update := bson.M{
		"$set": bson.M{
			"status":     claim.Status,
			"confidence": claim.Confidence,
			"evidence":   claim.Evidence,
			"sources":    []string(sources),
			"updated_at": claim.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"origin_url":   claim.OriginURL,
			"claim_text":   claim.ClaimText,
			"origin_label": claim.OriginLabel,
			"category":     claim.Category,
			"context":      claim.Context,
			"raw_text":     claim.RawText,
			"images":       nonNil(claim.Images),
			"videos":       nonNil(claim.Videos),
			"metadata":     map[string]interface{}(claim.Metadata),
			"created_at":   claim.CreatedAt,
		},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": claim.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("failed to upsert claim %s: %w", claim.ID, err)
	}
	return claim.ID, nil
}

func nonNil(a domain.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return a
}

// GetByID fetches one claim document.
func (r *MongoClaimRepository) GetByID(ctx context.Context, id string) (*domain.VerifiedClaim, error) {
	var claim domain.VerifiedClaim
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&claim); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// List returns claims newest first.
func (r *MongoClaimRepository) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.VerifiedClaim, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.OriginURL != "" {
		query["origin_url"] = filter.OriginURL
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(clampLimit(filter.Limit))).
		SetSkip(int64(filter.Offset))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	claims := []domain.VerifiedClaim{}
	if err := cur.All(ctx, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExistsByOriginURL reports whether any claim was saved for originURL.
func (r *MongoClaimRepository) ExistsByOriginURL(ctx context.Context, originURL string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"origin_url": originURL}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks that the primary is reachable.
func (r *MongoClaimRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (r *MongoClaimRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
