package repository

import (
	"context"
	"fmt"
	"time"

	"bidhouse/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GateCollectionName = "auction_active"

// ActivityGate marks which auctions currently accept bids. A marker carries
// the auction's hard end time; a TTL index reaps it if the closeout job never
// gets to it.
type ActivityGate interface {
	Activate(ctx context.Context, auctionID string, expiresAt time.Time) (bool, error)
	IsActive(ctx context.Context, auctionID string) (bool, error)
	Deactivate(ctx context.Context, auctionID string) error
	EnsureIndexes(ctx context.Context) error
}

type activeMarker struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type mongoActivityGate struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewActivityGate(cfg *config.Config) ActivityGate {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoActivityGate{
		cfg:        cfg,
		collection: db.Collection(GateCollectionName),
	}
}

func (r *mongoActivityGate) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create gate TTL index: %w", err)
	}
	return nil
}

// Activate is idempotent. A duplicate insert means the marker already exists
// and the expiry is left untouched: reactivating never extends an auction.
// Returns true only for the insert that actually opened the gate.
func (r *mongoActivityGate) Activate(ctx context.Context, auctionID string, expiresAt time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, activeMarker{
		ID:        auctionID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to activate auction: %w", err)
	}

	return true, nil
}

// IsActive treats an expired-but-unreaped marker as inactive: TTL reaping is
// lazy and must not widen the bidding window.
func (r *mongoActivityGate) IsActive(ctx context.Context, auctionID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	var marker activeMarker
	err := r.collection.FindOne(ctx, bson.M{"_id": auctionID}).Decode(&marker)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to check auction activity: %w", err)
	}

	return marker.ExpiresAt.After(time.Now()), nil
}

func (r *mongoActivityGate) Deactivate(ctx context.Context, auctionID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": auctionID})
	if err != nil {
		return fmt.Errorf("failed to deactivate auction: %w", err)
	}
	return nil
}
