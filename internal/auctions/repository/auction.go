package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	auctionserrors "bidhouse/internal/auctions/errors"
	"bidhouse/pkg/config"
	mongotx "bidhouse/pkg/db/mongo"
	"bidhouse/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "auctions"

// AuctionRepository reads the auction schedule and writes the lifecycle
// fields this service owns: the FINISHED transition and the negotiation
// outcome. Listing and approval flows own everything else.
type AuctionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Auction, error)
	FindActivatable(ctx context.Context, now time.Time) ([]*model.Auction, error)
	FindEndedUnfinished(ctx context.Context, now time.Time) ([]*model.Auction, error)
	FindFinishedUndecided(ctx context.Context) ([]*model.Auction, error)
	MarkFinished(ctx context.Context, id string, flushedAt time.Time) error
	SetWinner(ctx context.Context, id string, winnerID string) error
	SetNoWinner(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAuctionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAuctionRepository(cfg *config.Config) AuctionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuctionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAuctionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAuctionRepository) FindByID(ctx context.Context, id string) (*model.Auction, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var auction model.Auction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&auction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auctionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find auction: %w", err)
	}

	return &auction, nil
}

// FindActivatable returns accepted auctions whose bidding window contains now.
func (r *mongoAuctionRepository) FindActivatable(ctx context.Context, now time.Time) ([]*model.Auction, error) {
	return r.findAll(ctx, bson.M{
		"status":   model.AuctionStatusAccepted,
		"start_at": bson.M{"$lte": now},
		"end_at":   bson.M{"$gt": now},
	})
}

// FindEndedUnfinished returns accepted auctions past their end time that have
// not been flushed yet.
func (r *mongoAuctionRepository) FindEndedUnfinished(ctx context.Context, now time.Time) ([]*model.Auction, error) {
	return r.findAll(ctx, bson.M{
		"status": model.AuctionStatusAccepted,
		"end_at": bson.M{"$lte": now},
	})
}

// FindFinishedUndecided returns flushed auctions whose negotiation has not
// reached a terminal outcome, the working set of the offer-timeout sweep.
func (r *mongoAuctionRepository) FindFinishedUndecided(ctx context.Context) ([]*model.Auction, error) {
	return r.findAll(ctx, bson.M{
		"status":    model.AuctionStatusFinished,
		"winner_id": bson.M{"$in": bson.A{nil, ""}},
		"no_winner": bson.M{"$ne": true},
	})
}

func (r *mongoAuctionRepository) findAll(ctx context.Context, filter bson.M) ([]*model.Auction, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find auctions: %w", err)
	}
	defer cursor.Close(ctx)

	var auctions []*model.Auction
	if err = cursor.All(ctx, &auctions); err != nil {
		return nil, fmt.Errorf("failed to decode auctions: %w", err)
	}

	return auctions, nil
}

func (r *mongoAuctionRepository) MarkFinished(ctx context.Context, id string, flushedAt time.Time) error {
	return r.update(ctx, id, bson.M{
		"status":     model.AuctionStatusFinished,
		"flushed_at": flushedAt,
	})
}

func (r *mongoAuctionRepository) SetWinner(ctx context.Context, id string, winnerID string) error {
	return r.update(ctx, id, bson.M{"winner_id": winnerID})
}

func (r *mongoAuctionRepository) SetNoWinner(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"no_winner": true})
}

func (r *mongoAuctionRepository) update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if result.MatchedCount == 0 {
		return auctionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoAuctionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
