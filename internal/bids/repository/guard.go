package repository

import (
	"context"
	"fmt"
	"time"

	"bidhouse/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const GuardCollectionName = "bid_claims"

// BidGuard enforces one bid per bidder per auction. The claim is a single
// insert against the unique _id index, so concurrent attempts for the same
// (auction, bidder) pair race on the index and exactly one wins.
type BidGuard interface {
	TryClaim(ctx context.Context, auctionID, bidderID string) (bool, error)
	HasClaim(ctx context.Context, auctionID, bidderID string) (bool, error)
	Clear(ctx context.Context, auctionID string) error
}

type claimMarker struct {
	ID        string    `bson:"_id"`
	AuctionID string    `bson:"auction_id"`
	BidderID  string    `bson:"bidder_id"`
	ClaimedAt time.Time `bson:"claimed_at"`
}

type mongoBidGuard struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBidGuard(cfg *config.Config) BidGuard {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBidGuard{
		cfg:        cfg,
		collection: db.Collection(GuardCollectionName),
	}
}

func claimID(auctionID, bidderID string) string {
	return auctionID + ":" + bidderID
}

// TryClaim returns false when the bidder already holds a claim. Duplicate key
// is the expected answer on redelivery, not a failure.
func (r *mongoBidGuard) TryClaim(ctx context.Context, auctionID, bidderID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, claimMarker{
		ID:        claimID(auctionID, bidderID),
		AuctionID: auctionID,
		BidderID:  bidderID,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim bid slot: %w", err)
	}

	return true, nil
}

// HasClaim is the advisory read used by the synchronous pre-check. It can
// race with an in-flight claim; the authoritative answer is TryClaim.
func (r *mongoBidGuard) HasClaim(ctx context.Context, auctionID, bidderID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	err := r.collection.FindOne(ctx, bson.M{"_id": claimID(auctionID, bidderID)}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bid claim: %w", err)
	}

	return true, nil
}

func (r *mongoBidGuard) Clear(ctx context.Context, auctionID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"auction_id": auctionID})
	if err != nil {
		return fmt.Errorf("failed to clear bid claims: %w", err)
	}
	return nil
}
