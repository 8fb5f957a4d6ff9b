package repository

import (
	"context"
	"fmt"
	"time"

	"bidhouse/pkg/config"
	"bidhouse/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LeaderboardCollectionName = "live_bids"

// Leaderboard holds the live standings of an open auction. One entry per
// (auction, bidder); bulk-cleared at flush. Ordering is amount desc, then
// earliest submission, then _id as the final deterministic tie-break.
type Leaderboard interface {
	Record(ctx context.Context, event *model.BidEvent) error
	TopK(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error)
	Rest(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error)
	Count(ctx context.Context, auctionID string) (int64, error)
	Clear(ctx context.Context, auctionID string) error
	EnsureIndexes(ctx context.Context) error
}

type liveBid struct {
	ID          string    `bson:"_id"`
	AuctionID   string    `bson:"auction_id"`
	BidderID    string    `bson:"bidder_id"`
	AmountMinor int64     `bson:"amount_minor"`
	SubmittedAt time.Time `bson:"submitted_at"`
	Payload     []byte    `bson:"payload"`
}

type mongoLeaderboard struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewLeaderboard(cfg *config.Config) Leaderboard {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeaderboard{
		cfg:        cfg,
		collection: db.Collection(LeaderboardCollectionName),
	}
}

func (r *mongoLeaderboard) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "auction_id", Value: 1},
			{Key: "amount_minor", Value: -1},
			{Key: "submitted_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create leaderboard index: %w", err)
	}
	return nil
}

func (r *mongoLeaderboard) Record(ctx context.Context, event *model.BidEvent) error {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	payload, err := event.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize bid event: %w", err)
	}

	filter := bson.M{"_id": claimID(event.AuctionID, event.BidderID)}
	update := bson.M{
		"$set": bson.M{
			"auction_id":   event.AuctionID,
			"bidder_id":    event.BidderID,
			"amount_minor": event.AmountMinor,
			"submitted_at": event.SubmittedAt,
			"payload":      payload,
		},
	}

	_, err = r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record leaderboard entry: %w", err)
	}
	return nil
}

func (r *mongoLeaderboard) TopK(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error) {
	return r.find(ctx, auctionID, int64(k), 0)
}

// Rest returns everything below the top k, in the same ordering.
func (r *mongoLeaderboard) Rest(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error) {
	return r.find(ctx, auctionID, 0, int64(k))
}

func (r *mongoLeaderboard) find(ctx context.Context, auctionID string, limit, skip int64) ([]*model.BidEvent, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{
			{Key: "amount_minor", Value: -1},
			{Key: "submitted_at", Value: 1},
			{Key: "_id", Value: 1},
		}).
		SetSkip(skip)
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"auction_id": auctionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []liveBid
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard entries: %w", err)
	}

	events := make([]*model.BidEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, &model.BidEvent{
			AuctionID:   e.AuctionID,
			BidderID:    e.BidderID,
			AmountMinor: e.AmountMinor,
			SubmittedAt: e.SubmittedAt,
		})
	}

	return events, nil
}

func (r *mongoLeaderboard) Count(ctx context.Context, auctionID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"auction_id": auctionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard entries: %w", err)
	}
	return count, nil
}

func (r *mongoLeaderboard) Clear(ctx context.Context, auctionID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.StoreCallTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"auction_id": auctionID})
	if err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	return nil
}
