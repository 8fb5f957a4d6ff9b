package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bidserrors "bidhouse/internal/bids/errors"
	"bidhouse/pkg/config"
	mongotx "bidhouse/pkg/db/mongo"
	"bidhouse/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BidCollectionName = "bids"

// BidRepository stores the durable bid rows written at flush and mutated by
// the winner negotiation. Rows are never deleted.
type BidRepository interface {
	BulkInsert(ctx context.Context, bids []*model.Bid) error
	FindByAuction(ctx context.Context, auctionID string) ([]*model.Bid, error)
	FindByAuctionAndBidder(ctx context.Context, auctionID, bidderID string) (*model.Bid, error)
	FindOffered(ctx context.Context, auctionID string) ([]*model.Bid, error)
	FindNextWaiting(ctx context.Context, auctionID string, afterRank int) (*model.Bid, error)
	SetStatus(ctx context.Context, id string, status model.BidStatus, decidedAt *time.Time) error
	SetRankStatus(ctx context.Context, id string, rank int, status model.BidStatus) error
	MarkLostBelow(ctx context.Context, auctionID string, rank int, decidedAt time.Time) error
	CountByAuction(ctx context.Context, auctionID string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBidRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBidRepository(cfg *config.Config) BidRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBidRepository{
		cfg:        cfg,
		collection: db.Collection(BidCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBidRepository) BulkInsert(ctx context.Context, bids []*model.Bid) error {
	if len(bids) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, 0, len(bids))
	for _, b := range bids {
		docs = append(docs, b)
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert bids: %w", err)
	}
	return nil
}

// FindByAuction returns all durable rows for an auction, best first
// (amount desc, earliest bid wins ties).
func (r *mongoBidRepository) FindByAuction(ctx context.Context, auctionID string) ([]*model.Bid, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "amount_minor", Value: -1},
		{Key: "bid_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"auction_id": auctionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bids: %w", err)
	}
	defer cursor.Close(ctx)

	var bids []*model.Bid
	if err = cursor.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("failed to decode bids: %w", err)
	}

	return bids, nil
}

func (r *mongoBidRepository) FindByAuctionAndBidder(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var bid model.Bid
	err := r.collection.FindOne(ctx, bson.M{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
	}).Decode(&bid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bidserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bid: %w", err)
	}

	return &bid, nil
}

func (r *mongoBidRepository) FindOffered(ctx context.Context, auctionID string) ([]*model.Bid, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{
		"auction_id": auctionID,
		"status":     model.BidStatusOffered,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find offered bids: %w", err)
	}
	defer cursor.Close(ctx)

	var bids []*model.Bid
	if err = cursor.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("failed to decode offered bids: %w", err)
	}

	return bids, nil
}

// FindNextWaiting returns the best-ranked WAITING bid strictly below the
// given rank, the next finalist in line for an offer.
func (r *mongoBidRepository) FindNextWaiting(ctx context.Context, auctionID string, afterRank int) (*model.Bid, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "rank", Value: 1}})

	var bid model.Bid
	err := r.collection.FindOne(ctx, bson.M{
		"auction_id": auctionID,
		"status":     model.BidStatusWaiting,
		"rank":       bson.M{"$gt": afterRank},
	}, opts).Decode(&bid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bidserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find next waiting bid: %w", err)
	}

	return &bid, nil
}

func (r *mongoBidRepository) SetStatus(ctx context.Context, id string, status model.BidStatus, decidedAt *time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"status": status}
	if decidedAt != nil {
		update["decided_at"] = *decidedAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update bid status: %w", err)
	}
	if result.MatchedCount == 0 {
		return bidserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBidRepository) SetRankStatus(ctx context.Context, id string, rank int, status model.BidStatus) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rank": rank, "status": status},
	})
	if err != nil {
		return fmt.Errorf("failed to update bid rank: %w", err)
	}
	if result.MatchedCount == 0 {
		return bidserrors.ErrNotFound
	}
	return nil
}

// MarkLostBelow settles every WAITING bid ranked worse than the given rank.
func (r *mongoBidRepository) MarkLostBelow(ctx context.Context, auctionID string, rank int, decidedAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx, bson.M{
		"auction_id": auctionID,
		"status":     model.BidStatusWaiting,
		"rank":       bson.M{"$gt": rank},
	}, bson.M{
		"$set": bson.M{
			"status":     model.BidStatusLost,
			"decided_at": decidedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to settle losing bids: %w", err)
	}
	return nil
}

func (r *mongoBidRepository) CountByAuction(ctx context.Context, auctionID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"auction_id": auctionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

func (r *mongoBidRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
