package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bidhouse/internal/notifications/repository"
	"bidhouse/pkg/client"
	"bidhouse/pkg/config"
	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/model"
)

const (
	dispatchBatchSize = 100

	// giveUpAfter bounds retries: a reservation this far past its schedule is
	// stale enough that delivering it would confuse more than help.
	giveUpAfter = 24 * time.Hour
)

// Notifier drains pending notification reservations and delivers them through
// the notifier service. Delivery is at-least-once: a reservation stays PENDING
// until a send succeeds, so a crashed dispatch run is retried on the next tick.
type Notifier struct {
	reservations repository.ReservationRepository
	notifier     *client.NotifierClient
	users        *client.UserDirectoryClient
	cfg          *config.Config

	mu sync.Mutex
}

func NewNotifier(
	reservations repository.ReservationRepository,
	notifier *client.NotifierClient,
	users *client.UserDirectoryClient,
	cfg *config.Config,
) *Notifier {
	return &Notifier{
		reservations: reservations,
		notifier:     notifier,
		users:        users,
		cfg:          cfg,
	}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.NotifyInterval)
	defer ticker.Stop()

	n.cfg.Log.Info("Notification dispatcher started", "interval", n.cfg.NotifyInterval)

	for {
		select {
		case <-ctx.Done():
			n.cfg.Log.Info("Notification dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if !n.mu.TryLock() {
				continue
			}
			if err := n.DispatchPending(ctx); err != nil {
				n.cfg.Log.Error("Notification dispatch failed", "error", err)
			}
			n.mu.Unlock()
		}
	}
}

// DispatchPending sends the oldest pending reservations. Send failures are
// logged and left PENDING for the next run; only a successful delivery
// transitions a reservation to SENT.
func (n *Notifier) DispatchPending(ctx context.Context) error {
	pending, err := n.reservations.FindPending(ctx, dispatchBatchSize)
	if err != nil {
		return apperrors.Internal("Failed to load pending reservations", err)
	}

	for _, reservation := range pending {
		if err := n.dispatch(ctx, reservation); err != nil {
			n.cfg.Log.Warn("Failed to dispatch notification",
				"reservation_id", reservation.ID,
				"user_id", reservation.UserID,
				"type", reservation.Type,
				"error", err,
			)
			if time.Since(reservation.ScheduledAt) > giveUpAfter {
				if err := n.reservations.MarkFailed(ctx, reservation.ID); err != nil {
					n.cfg.Log.Error("Failed to mark reservation failed",
						"reservation_id", reservation.ID,
						"error", err,
					)
				}
			}
			continue
		}

		if err := n.reservations.MarkSent(ctx, reservation.ID, time.Now().UTC()); err != nil {
			n.cfg.Log.Error("Failed to mark reservation sent",
				"reservation_id", reservation.ID,
				"error", err,
			)
		}
	}

	return nil
}

func (n *Notifier) dispatch(ctx context.Context, reservation *model.NotificationReservation) error {
	title, message := n.compose(ctx, reservation)

	return n.notifier.Send(ctx, client.NotifyRequest{
		UserID:  reservation.UserID,
		Type:    string(reservation.Type),
		Title:   title,
		Message: message,
	})
}

// compose builds the user-facing text. The profile lookup is best-effort
// decoration; a user-directory outage never blocks delivery.
func (n *Notifier) compose(ctx context.Context, reservation *model.NotificationReservation) (string, string) {
	greeting := "Hello"
	if profile, err := n.users.GetProfile(ctx, reservation.UserID); err == nil && profile.Nickname != "" {
		greeting = fmt.Sprintf("Hello %s", profile.Nickname)
	}

	switch reservation.Type {
	case model.NotificationAuctionOffer:
		return "You hold the winning offer",
			fmt.Sprintf("%s, your bid on auction %s is now the leading offer. Please accept or decline it.", greeting, reservation.AuctionID)
	case model.NotificationAuctionNoWinner:
		return "Auction closed without a winner",
			fmt.Sprintf("%s, auction %s ended without an accepted offer.", greeting, reservation.AuctionID)
	case model.NotificationAuctionStart:
		return "Auction is now live",
			fmt.Sprintf("%s, auction %s is open for bids.", greeting, reservation.AuctionID)
	default:
		return "Auction update",
			fmt.Sprintf("%s, there is an update on auction %s.", greeting, reservation.AuctionID)
	}
}
