package repository

import (
	"context"
	"fmt"
	"time"

	"bidhouse/pkg/config"
	"bidhouse/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "notification_reservations"

// ReservationRepository persists notification intents. Reservations are
// written inside negotiation transactions and drained by the dispatch job.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.NotificationReservation) error
	FindPending(ctx context.Context, limit int) ([]*model.NotificationReservation, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.NotificationReservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.New().String()
	}
	reservation.Status = model.ReservationPending
	if reservation.ScheduledAt.IsZero() {
		reservation.ScheduledAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create notification reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindPending(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"status": model.ReservationPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.NotificationReservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.setStatus(ctx, id, bson.M{
		"status":  model.ReservationSent,
		"sent_at": sentAt,
	})
}

func (r *mongoReservationRepository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, bson.M{"status": model.ReservationFailed})
}

func (r *mongoReservationRepository) setStatus(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	return nil
}
