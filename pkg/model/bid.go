package model

import "time"

type BidStatus string

const (
	BidStatusWaiting  BidStatus = "WAITING"
	BidStatusOffered  BidStatus = "OFFERED"
	BidStatusAccepted BidStatus = "ACCEPTED"
	BidStatusRejected BidStatus = "REJECTED"
	BidStatusLost     BidStatus = "LOST"
	BidStatusTimeout  BidStatus = "TIMEOUT"
)

// RankNone marks durable bids outside the retention cohort.
const RankNone = 999

// Bid is the durable record of an accepted bid, created in bulk when an
// auction is flushed and mutated only by the winner negotiation. Rows are
// never deleted; they are the audit trail of the auction.
type Bid struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	AuctionID   string     `bson:"auction_id" json:"auction_id"`
	BidderID    string     `bson:"bidder_id" json:"bidder_id"`
	AmountMinor int64      `bson:"amount_minor" json:"amount_minor"`
	BidAt       time.Time  `bson:"bid_at" json:"bid_at"`
	Rank        int        `bson:"rank" json:"rank"`
	Status      BidStatus  `bson:"status" json:"status"`
	DecidedAt   *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}

// Decided reports whether the bid has reached a state the negotiation will
// never revisit.
func (b *Bid) Decided() bool {
	switch b.Status {
	case BidStatusAccepted, BidStatusRejected, BidStatusLost, BidStatusTimeout:
		return true
	}
	return false
}
