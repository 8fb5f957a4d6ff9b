package model

import "time"

type AuctionStatus string

const (
	AuctionStatusRequested AuctionStatus = "REQUESTED"
	AuctionStatusAccepted  AuctionStatus = "ACCEPTED"
	AuctionStatusFinished  AuctionStatus = "FINISHED"
)

// Auction carries the schedule fields the lifecycle scheduler and activity
// gate consume. Status transitions up to ACCEPTED are owned by the listing
// flow; this core writes the FINISHED transition at closeout and the
// winner/no-winner outcome during negotiation.
type Auction struct {
	ID         string        `bson:"_id,omitempty" json:"id"`
	PropertyID string        `bson:"property_id" json:"property_id"`
	BrokerID   string        `bson:"broker_id" json:"broker_id"`
	StartAt    time.Time     `bson:"start_at" json:"start_at"`
	EndAt      time.Time     `bson:"end_at" json:"end_at"`
	Status     AuctionStatus `bson:"status" json:"status"`
	WinnerID   string        `bson:"winner_id,omitempty" json:"winner_id,omitempty"`
	NoWinner   bool          `bson:"no_winner,omitempty" json:"no_winner,omitempty"`
	FlushedAt  *time.Time    `bson:"flushed_at,omitempty" json:"flushed_at,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

func (a *Auction) Finished() bool {
	return a.Status == AuctionStatusFinished
}
