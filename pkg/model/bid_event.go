package model

import (
	"encoding/json"
	"time"
)

// BidEvent is the wire payload of a single bid attempt. It is produced once
// by the submission endpoint, travels through the bid topic keyed by auction
// id, and is consumed exactly once by the intake pipeline. Amounts are
// integer minor currency units.
type BidEvent struct {
	AuctionID   string    `json:"auction_id" validate:"required"`
	BidderID    string    `json:"bidder_id" validate:"required"`
	AmountMinor int64     `json:"amount_minor" validate:"required,gt=0"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Serialize returns the canonical JSON form stored as the leaderboard entry
// payload, so amount, bidder and timestamp travel together.
func (e *BidEvent) Serialize() ([]byte, error) {
	return json.Marshal(e)
}

func DeserializeBidEvent(data []byte) (*BidEvent, error) {
	var ev BidEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
