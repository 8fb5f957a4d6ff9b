package service

import (
	"context"
	"errors"
	"testing"
	"time"

	bidserrors "bidhouse/internal/bids/errors"
	"bidhouse/internal/bids/validator"
	"bidhouse/pkg/config"
	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/kafka"
	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"

	mongotx "bidhouse/pkg/db/mongo"
)

// Mock stores for testing
type mockActivityGate struct {
	activateFunc   func(ctx context.Context, auctionID string, expiresAt time.Time) (bool, error)
	isActiveFunc   func(ctx context.Context, auctionID string) (bool, error)
	deactivateFunc func(ctx context.Context, auctionID string) error
}

func (m *mockActivityGate) Activate(ctx context.Context, auctionID string, expiresAt time.Time) (bool, error) {
	if m.activateFunc != nil {
		return m.activateFunc(ctx, auctionID, expiresAt)
	}
	return true, nil
}

func (m *mockActivityGate) IsActive(ctx context.Context, auctionID string) (bool, error) {
	if m.isActiveFunc != nil {
		return m.isActiveFunc(ctx, auctionID)
	}
	return true, nil
}

func (m *mockActivityGate) Deactivate(ctx context.Context, auctionID string) error {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, auctionID)
	}
	return nil
}

func (m *mockActivityGate) EnsureIndexes(ctx context.Context) error { return nil }

type mockBidGuard struct {
	tryClaimFunc func(ctx context.Context, auctionID, bidderID string) (bool, error)
	hasClaimFunc func(ctx context.Context, auctionID, bidderID string) (bool, error)
	clearFunc    func(ctx context.Context, auctionID string) error
}

func (m *mockBidGuard) TryClaim(ctx context.Context, auctionID, bidderID string) (bool, error) {
	if m.tryClaimFunc != nil {
		return m.tryClaimFunc(ctx, auctionID, bidderID)
	}
	return true, nil
}

func (m *mockBidGuard) HasClaim(ctx context.Context, auctionID, bidderID string) (bool, error) {
	if m.hasClaimFunc != nil {
		return m.hasClaimFunc(ctx, auctionID, bidderID)
	}
	return false, nil
}

func (m *mockBidGuard) Clear(ctx context.Context, auctionID string) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, auctionID)
	}
	return nil
}

type mockLeaderboard struct {
	recordFunc func(ctx context.Context, event *model.BidEvent) error
	topKFunc   func(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error)
	restFunc   func(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error)
	countFunc  func(ctx context.Context, auctionID string) (int64, error)
	clearFunc  func(ctx context.Context, auctionID string) error
}

func (m *mockLeaderboard) Record(ctx context.Context, event *model.BidEvent) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, event)
	}
	return nil
}

func (m *mockLeaderboard) TopK(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error) {
	if m.topKFunc != nil {
		return m.topKFunc(ctx, auctionID, k)
	}
	return nil, nil
}

func (m *mockLeaderboard) Rest(ctx context.Context, auctionID string, k int) ([]*model.BidEvent, error) {
	if m.restFunc != nil {
		return m.restFunc(ctx, auctionID, k)
	}
	return nil, nil
}

func (m *mockLeaderboard) Count(ctx context.Context, auctionID string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, auctionID)
	}
	return 0, nil
}

func (m *mockLeaderboard) Clear(ctx context.Context, auctionID string) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, auctionID)
	}
	return nil
}

func (m *mockLeaderboard) EnsureIndexes(ctx context.Context) error { return nil }

type mockBidRepository struct {
	findByAuctionAndBidderFunc func(ctx context.Context, auctionID, bidderID string) (*model.Bid, error)
}

func (m *mockBidRepository) BulkInsert(ctx context.Context, bids []*model.Bid) error { return nil }

func (m *mockBidRepository) FindByAuction(ctx context.Context, auctionID string) ([]*model.Bid, error) {
	return nil, nil
}

func (m *mockBidRepository) FindByAuctionAndBidder(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
	if m.findByAuctionAndBidderFunc != nil {
		return m.findByAuctionAndBidderFunc(ctx, auctionID, bidderID)
	}
	return nil, bidserrors.ErrNotFound
}

func (m *mockBidRepository) FindOffered(ctx context.Context, auctionID string) ([]*model.Bid, error) {
	return nil, nil
}

func (m *mockBidRepository) FindNextWaiting(ctx context.Context, auctionID string, afterRank int) (*model.Bid, error) {
	return nil, bidserrors.ErrNotFound
}

func (m *mockBidRepository) SetStatus(ctx context.Context, id string, status model.BidStatus, decidedAt *time.Time) error {
	return nil
}

func (m *mockBidRepository) SetRankStatus(ctx context.Context, id string, rank int, status model.BidStatus) error {
	return nil
}

func (m *mockBidRepository) MarkLostBelow(ctx context.Context, auctionID string, rank int, decidedAt time.Time) error {
	return nil
}

func (m *mockBidRepository) CountByAuction(ctx context.Context, auctionID string) (int64, error) {
	return 0, nil
}

func (m *mockBidRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockPublisher struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func newTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: "test",
	})

	return &config.Config{
		Log:              log,
		MaxBidAmount:     100_000_000_00,
		StoreCallTimeout: 2 * time.Second,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

func newIntakeService(gate *mockActivityGate, guard *mockBidGuard, board *mockLeaderboard, bids *mockBidRepository, producer *mockPublisher, cfg *config.Config) IntakeService {
	return NewIntakeService(gate, guard, board, bids, producer, validator.NewBidValidator(cfg.MaxBidAmount, cfg.Log), cfg)
}

func TestSubmit_PublishesKeyedByAuction(t *testing.T) {
	cfg := newTestConfig()

	var published kafka.Message
	producer := &mockPublisher{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			published = msg
			return nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, producer, cfg)

	event := &model.BidEvent{
		AuctionID:   "auction-1",
		BidderID:    "bidder-1",
		AmountMinor: 500_000_00,
	}

	if err := svc.Submit(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if published.Key != "auction-1" {
		t.Errorf("expected message key %q, got %q", "auction-1", published.Key)
	}

	decoded, err := model.DeserializeBidEvent(published.Value)
	if err != nil {
		t.Fatalf("failed to decode published payload: %v", err)
	}
	if decoded.BidderID != "bidder-1" || decoded.AmountMinor != 500_000_00 {
		t.Errorf("payload mismatch: %+v", decoded)
	}
	if decoded.SubmittedAt.IsZero() {
		t.Error("expected submitted_at to be stamped server-side")
	}
}

func TestSubmit_RejectsInvalidAmount(t *testing.T) {
	cfg := newTestConfig()

	publishCalled := false
	producer := &mockPublisher{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			publishCalled = true
			return nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, producer, cfg)

	err := svc.Submit(context.Background(), &model.BidEvent{
		AuctionID:   "auction-1",
		BidderID:    "bidder-1",
		AmountMinor: 0,
	})

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if publishCalled {
		t.Error("invalid bid must not be published")
	}
}

func TestSubmit_ConflictWhenAuctionInactive(t *testing.T) {
	cfg := newTestConfig()

	gate := &mockActivityGate{
		isActiveFunc: func(ctx context.Context, auctionID string) (bool, error) {
			return false, nil
		},
	}

	svc := newIntakeService(gate, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	err := svc.Submit(context.Background(), &model.BidEvent{
		AuctionID:   "auction-1",
		BidderID:    "bidder-1",
		AmountMinor: 100,
	})

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSubmit_ConflictWhenAlreadyClaimed(t *testing.T) {
	cfg := newTestConfig()

	guard := &mockBidGuard{
		hasClaimFunc: func(ctx context.Context, auctionID, bidderID string) (bool, error) {
			return true, nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, guard, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	err := svc.Submit(context.Background(), &model.BidEvent{
		AuctionID:   "auction-1",
		BidderID:    "bidder-1",
		AmountMinor: 100,
	})

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func validMessage(t *testing.T, auctionID, bidderID string, amount int64) kafka.Message {
	t.Helper()
	event := &model.BidEvent{
		AuctionID:   auctionID,
		BidderID:    bidderID,
		AmountMinor: amount,
		SubmittedAt: time.Now().UTC(),
	}
	payload, err := event.Serialize()
	if err != nil {
		t.Fatalf("failed to serialize event: %v", err)
	}
	return kafka.NewMessage().WithKey(auctionID).WithRawValue(payload).Build()
}

func TestHandleMessage_RecordsFirstBid(t *testing.T) {
	cfg := newTestConfig()

	var recorded *model.BidEvent
	board := &mockLeaderboard{
		recordFunc: func(ctx context.Context, event *model.BidEvent) error {
			recorded = event
			return nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, board, &mockBidRepository{}, &mockPublisher{}, cfg)

	msg := validMessage(t, "auction-1", "bidder-1", 900_000_00)
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if recorded == nil {
		t.Fatal("expected bid to be recorded on the leaderboard")
	}
	if recorded.AmountMinor != 900_000_00 {
		t.Errorf("expected amount 90000000, got %d", recorded.AmountMinor)
	}
}

func TestHandleMessage_DropsDuplicateBid(t *testing.T) {
	cfg := newTestConfig()

	guard := &mockBidGuard{
		tryClaimFunc: func(ctx context.Context, auctionID, bidderID string) (bool, error) {
			return false, nil
		},
	}
	recordCalled := false
	board := &mockLeaderboard{
		recordFunc: func(ctx context.Context, event *model.BidEvent) error {
			recordCalled = true
			return nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, guard, board, &mockBidRepository{}, &mockPublisher{}, cfg)

	// Duplicate is a normal outcome: nil error means the message is committed
	// without being redelivered.
	if err := svc.HandleMessage(context.Background(), validMessage(t, "auction-1", "bidder-1", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recordCalled {
		t.Error("duplicate bid must not reach the leaderboard")
	}
}

func TestHandleMessage_DropsStragglerAfterClose(t *testing.T) {
	cfg := newTestConfig()

	gate := &mockActivityGate{
		isActiveFunc: func(ctx context.Context, auctionID string) (bool, error) {
			return false, nil
		},
	}
	claimCalled := false
	guard := &mockBidGuard{
		tryClaimFunc: func(ctx context.Context, auctionID, bidderID string) (bool, error) {
			claimCalled = true
			return true, nil
		},
	}

	svc := newIntakeService(gate, guard, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	if err := svc.HandleMessage(context.Background(), validMessage(t, "auction-1", "bidder-1", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimCalled {
		t.Error("straggler must be dropped before claiming")
	}
}

func TestHandleMessage_BadPayloadIsPermanent(t *testing.T) {
	cfg := newTestConfig()

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	msg := kafka.NewMessage().WithKey("auction-1").WithRawValue([]byte("not json")).Build()
	err := svc.HandleMessage(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error for undecodable payload")
	}

	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestHandleMessage_StoreOutageIsTransient(t *testing.T) {
	cfg := newTestConfig()

	gate := &mockActivityGate{
		isActiveFunc: func(ctx context.Context, auctionID string) (bool, error) {
			return false, errors.New("connection refused")
		},
	}

	svc := newIntakeService(gate, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	err := svc.HandleMessage(context.Background(), validMessage(t, "auction-1", "bidder-1", 100))
	if err == nil {
		t.Fatal("expected error when the gate is unavailable")
	}

	if kafka.ClassifyError(err) != kafka.ErrorTypeTransient {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestMyBid_NotFound(t *testing.T) {
	cfg := newTestConfig()

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	_, err := svc.MyBid(context.Background(), "auction-1", "bidder-1")
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMyBid_RequiresIdentity(t *testing.T) {
	cfg := newTestConfig()

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, &mockBidRepository{}, &mockPublisher{}, cfg)

	_, err := svc.MyBid(context.Background(), "auction-1", "")
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestMyBid_ReturnsSettledRow(t *testing.T) {
	cfg := newTestConfig()

	bids := &mockBidRepository{
		findByAuctionAndBidderFunc: func(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
			return &model.Bid{
				ID:          "bid-1",
				AuctionID:   auctionID,
				BidderID:    bidderID,
				AmountMinor: 500_000_00,
				Rank:        3,
				Status:      model.BidStatusWaiting,
			}, nil
		},
	}

	svc := newIntakeService(&mockActivityGate{}, &mockBidGuard{}, &mockLeaderboard{}, bids, &mockPublisher{}, cfg)

	bid, err := svc.MyBid(context.Background(), "auction-1", "bidder-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bid.Rank != 3 || bid.Status != model.BidStatusWaiting {
		t.Errorf("unexpected bid row: %+v", bid)
	}
}
