package model

import "time"

type NotificationType string

const (
	NotificationAuctionOffer    NotificationType = "AUCTION_OFFER"
	NotificationAuctionNoWinner NotificationType = "AUCTION_NO_WINNER"
	NotificationAuctionStart    NotificationType = "AUCTION_START"
)

type ReservationStatus string

const (
	ReservationPending ReservationStatus = "PENDING"
	ReservationSent    ReservationStatus = "SENT"
	ReservationFailed  ReservationStatus = "FAILED"
)

// NotificationReservation is written inside the negotiation transaction and
// dispatched asynchronously, so a crash between the state change and the
// notification never loses the intent to notify.
type NotificationReservation struct {
	ID          string            `bson:"_id,omitempty" json:"id"`
	UserID      string            `bson:"user_id" json:"user_id"`
	AuctionID   string            `bson:"auction_id" json:"auction_id"`
	Type        NotificationType  `bson:"type" json:"type"`
	Status      ReservationStatus `bson:"status" json:"status"`
	ScheduledAt time.Time         `bson:"scheduled_at" json:"scheduled_at"`
	SentAt      *time.Time        `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
}
