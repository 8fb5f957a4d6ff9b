package validator

import (
	"strings"
	"testing"
	"time"

	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"
)

const testMaxBidAmount = 100_000_000_00

func newTestValidator() *BidValidator {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewBidValidator(testMaxBidAmount, log)
}

func TestValidateBidEvent(t *testing.T) {
	validator := newTestValidator()
	now := time.Now().UTC()

	tests := []struct {
		name      string
		event     *model.BidEvent
		wantError bool
	}{
		{
			name: "valid bid",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				BidderID:    "bidder-1",
				AmountMinor: 500_000_00,
				SubmittedAt: now,
			},
			wantError: false,
		},
		{
			name: "missing auction id",
			event: &model.BidEvent{
				BidderID:    "bidder-1",
				AmountMinor: 500_000_00,
				SubmittedAt: now,
			},
			wantError: true,
		},
		{
			name: "missing bidder id",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				AmountMinor: 500_000_00,
				SubmittedAt: now,
			},
			wantError: true,
		},
		{
			name: "zero amount",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				BidderID:    "bidder-1",
				AmountMinor: 0,
				SubmittedAt: now,
			},
			wantError: true,
		},
		{
			name: "negative amount",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				BidderID:    "bidder-1",
				AmountMinor: -100,
				SubmittedAt: now,
			},
			wantError: true,
		},
		{
			name: "amount at cap",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				BidderID:    "bidder-1",
				AmountMinor: testMaxBidAmount,
				SubmittedAt: now,
			},
			wantError: false,
		},
		{
			name: "amount above cap",
			event: &model.BidEvent{
				AuctionID:   "auction-1",
				BidderID:    "bidder-1",
				AmountMinor: testMaxBidAmount + 1,
				SubmittedAt: now,
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.event)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateErrorMessages(t *testing.T) {
	validator := newTestValidator()

	err := validator.Validate(&model.BidEvent{
		AuctionID:   "auction-1",
		BidderID:    "bidder-1",
		AmountMinor: testMaxBidAmount * 2,
	})
	if err == nil {
		t.Fatal("expected error for amount above cap")
	}
	if !strings.Contains(err.Error(), "must not exceed") {
		t.Errorf("expected cap message, got %q", err.Error())
	}

	err = validator.Validate(&model.BidEvent{})
	if err == nil {
		t.Fatal("expected error for empty event")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("expected required-field message, got %q", err.Error())
	}
}
