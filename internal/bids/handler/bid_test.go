package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/kafka"
	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockIntakeService struct {
	submitFunc func(ctx context.Context, event *model.BidEvent) error
	myBidFunc  func(ctx context.Context, auctionID, bidderID string) (*model.Bid, error)
}

func (m *mockIntakeService) Submit(ctx context.Context, event *model.BidEvent) error {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, event)
	}
	return nil
}

func (m *mockIntakeService) Precheck(ctx context.Context, event *model.BidEvent) error {
	return nil
}

func (m *mockIntakeService) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return nil
}

func (m *mockIntakeService) MyBid(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
	if m.myBidFunc != nil {
		return m.myBidFunc(ctx, auctionID, bidderID)
	}
	return nil, apperrors.NotFound("Bid")
}

func newTestRouter(svc *mockIntakeService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	router := httprouter.New()
	NewBidHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestSubmit_AcceptsBid(t *testing.T) {
	var submitted *model.BidEvent
	svc := &mockIntakeService{
		submitFunc: func(ctx context.Context, event *model.BidEvent) error {
			submitted = event
			return nil
		},
	}
	router := newTestRouter(svc)

	body := `{"auction_id":"auction-1","amount_minor":50000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bids", strings.NewReader(body))
	req.Header.Set(BidderIDHeader, "bidder-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if submitted == nil {
		t.Fatal("expected service to receive the bid")
	}
	if submitted.BidderID != "bidder-1" {
		t.Errorf("bidder identity must come from the header, got %q", submitted.BidderID)
	}
	if submitted.AmountMinor != 50000000 {
		t.Errorf("unexpected amount %d", submitted.AmountMinor)
	}
}

func TestSubmit_MissingIdentity(t *testing.T) {
	router := newTestRouter(&mockIntakeService{})

	body := `{"auction_id":"auction-1","amount_minor":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bids", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSubmit_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockIntakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bids", strings.NewReader("{not json"))
	req.Header.Set(BidderIDHeader, "bidder-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmit_ConflictFromService(t *testing.T) {
	svc := &mockIntakeService{
		submitFunc: func(ctx context.Context, event *model.BidEvent) error {
			return apperrors.Conflict("A bid was already submitted for this auction")
		},
	}
	router := newTestRouter(svc)

	body := `{"auction_id":"auction-1","amount_minor":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bids", strings.NewReader(body))
	req.Header.Set(BidderIDHeader, "bidder-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMyBid_ReturnsRow(t *testing.T) {
	svc := &mockIntakeService{
		myBidFunc: func(ctx context.Context, auctionID, bidderID string) (*model.Bid, error) {
			return &model.Bid{
				ID:          "bid-1",
				AuctionID:   auctionID,
				BidderID:    bidderID,
				AmountMinor: 100,
				Rank:        2,
				Status:      model.BidStatusWaiting,
			}, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bids/auction/auction-1", nil)
	req.Header.Set(BidderIDHeader, "bidder-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data model.Bid `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Rank != 2 {
		t.Errorf("unexpected rank %d", resp.Data.Rank)
	}
}

func TestMyBid_NotFound(t *testing.T) {
	router := newTestRouter(&mockIntakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bids/auction/auction-1", nil)
	req.Header.Set(BidderIDHeader, "bidder-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
