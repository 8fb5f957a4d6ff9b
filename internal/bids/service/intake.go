package service

import (
	"context"
	"errors"
	"time"

	bidserrors "bidhouse/internal/bids/errors"
	"bidhouse/internal/bids/repository"
	"bidhouse/internal/bids/validator"
	"bidhouse/pkg/config"
	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/kafka"
	"bidhouse/pkg/model"
)

const EventTypeBidSubmitted = "bid.submitted"

// Publisher is the slice of the Kafka producer the intake path needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// IntakeService is the bid admission pipeline: a synchronous pre-check and
// enqueue on the HTTP side, and the ordered consumer that applies dedup and
// leaderboard writes on the async side.
type IntakeService interface {
	Submit(ctx context.Context, event *model.BidEvent) error
	Precheck(ctx context.Context, event *model.BidEvent) error
	HandleMessage(ctx context.Context, msg kafka.Message) error
	MyBid(ctx context.Context, auctionID, bidderID string) (*model.Bid, error)
}

type intakeService struct {
	gate        repository.ActivityGate
	guard       repository.BidGuard
	leaderboard repository.Leaderboard
	bidRepo     repository.BidRepository
	producer    Publisher
	validator   *validator.BidValidator
	cfg         *config.Config
}

func NewIntakeService(
	gate repository.ActivityGate,
	guard repository.BidGuard,
	leaderboard repository.Leaderboard,
	bidRepo repository.BidRepository,
	producer Publisher,
	validator *validator.BidValidator,
	cfg *config.Config,
) IntakeService {
	return &intakeService{
		gate:        gate,
		guard:       guard,
		leaderboard: leaderboard,
		bidRepo:     bidRepo,
		producer:    producer,
		validator:   validator,
		cfg:         cfg,
	}
}

// Submit validates the bid, runs the advisory pre-check, and enqueues the
// event keyed by auction id. A 202 answer means "accepted for processing",
// never "recorded".
func (s *intakeService) Submit(ctx context.Context, event *model.BidEvent) error {
	event.SubmittedAt = time.Now().UTC().Truncate(time.Millisecond)

	if err := s.validator.Validate(event); err != nil {
		s.cfg.Log.Warn("Bid validation failed", "auction_id", event.AuctionID, "error", err)
		return apperrors.Validation("Bid validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.Precheck(ctx, event); err != nil {
		return err
	}

	payload, err := event.Serialize()
	if err != nil {
		return apperrors.Internal("Failed to serialize bid event", err)
	}

	msg := kafka.NewMessage().
		WithKey(event.AuctionID).
		WithRawValue(payload).
		WithEventType(EventTypeBidSubmitted).
		WithSource("bidhouse").
		Build()

	if err := s.producer.Publish(ctx, msg); err != nil {
		s.cfg.Log.Error("Failed to publish bid event",
			"auction_id", event.AuctionID,
			"bidder_id", event.BidderID,
			"error", err,
		)
		return apperrors.Unavailable("bid broker", err)
	}

	s.cfg.Log.Info("Bid enqueued",
		"auction_id", event.AuctionID,
		"bidder_id", event.BidderID,
		"amount_minor", event.AmountMinor,
	)
	return nil
}

// Precheck is advisory: it rejects obviously hopeless submissions early, but
// the authoritative gate and dedup decisions happen on the consumer side.
func (s *intakeService) Precheck(ctx context.Context, event *model.BidEvent) error {
	active, err := s.gate.IsActive(ctx, event.AuctionID)
	if err != nil {
		return apperrors.Unavailable("auction gate", err)
	}
	if !active {
		return apperrors.Conflict("Auction is not accepting bids")
	}

	claimed, err := s.guard.HasClaim(ctx, event.AuctionID, event.BidderID)
	if err != nil {
		return apperrors.Unavailable("bid guard", err)
	}
	if claimed {
		return apperrors.Conflict("A bid was already submitted for this auction")
	}

	return nil
}

// HandleMessage is the consumer side of the pipeline. Every step is safe
// under redelivery: the gate check drops stragglers, the claim insert is the
// dedup point, and the leaderboard write is an upsert.
func (s *intakeService) HandleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := model.DeserializeBidEvent(msg.Value)
	if err != nil {
		return kafka.NewPermanentError("deserialization failed", err)
	}

	if err := s.validator.Validate(event); err != nil {
		return kafka.NewPermanentError("invalid message", err)
	}

	active, err := s.gate.IsActive(ctx, event.AuctionID)
	if err != nil {
		return kafka.NewTransientError("auction gate unavailable", err)
	}
	if !active {
		// Straggler: the auction closed between enqueue and processing.
		s.cfg.Log.Info("Dropping bid for inactive auction",
			"auction_id", event.AuctionID,
			"bidder_id", event.BidderID,
		)
		return nil
	}

	claimed, err := s.guard.TryClaim(ctx, event.AuctionID, event.BidderID)
	if err != nil {
		return kafka.NewTransientError("bid guard unavailable", err)
	}
	if !claimed {
		// Duplicate submission or redelivery after a successful claim.
		s.cfg.Log.Info("Dropping duplicate bid",
			"auction_id", event.AuctionID,
			"bidder_id", event.BidderID,
		)
		return nil
	}

	if err := s.leaderboard.Record(ctx, event); err != nil {
		return kafka.NewTransientError("leaderboard unavailable", err)
	}

	s.cfg.Log.Info("Bid recorded",
		"auction_id", event.AuctionID,
		"bidder_id", event.BidderID,
		"amount_minor", event.AmountMinor,
	)
	return nil
}

// MyBid returns the caller's durable bid row for a flushed auction.
func (s *intakeService) MyBid(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
	if auctionID == "" {
		return nil, apperrors.InvalidInput("Auction ID cannot be empty")
	}
	if bidderID == "" {
		return nil, apperrors.Unauthorized("Bidder identity is required")
	}

	bid, err := s.bidRepo.FindByAuctionAndBidder(ctx, auctionID, bidderID)
	if err != nil {
		if errors.Is(err, bidserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Bid", auctionID)
		}
		return nil, apperrors.Internal("Failed to retrieve bid", err)
	}

	return bid, nil
}
