package service

import (
	"context"
	"sync"
	"time"

	auctionrepo "bidhouse/internal/auctions/repository"
	bidrepo "bidhouse/internal/bids/repository"
	notificationrepo "bidhouse/internal/notifications/repository"
	"bidhouse/pkg/config"
	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Scheduler runs the auction lifecycle sweeps: activation of auctions whose
// window opened, closeout of auctions whose window ended, and offer-timeout
// progression of stalled negotiations. Each job guards against overlapping
// with itself; a slow sweep skips ticks instead of stacking.
type Scheduler struct {
	auctions     auctionrepo.AuctionRepository
	gate         bidrepo.ActivityGate
	guard        bidrepo.BidGuard
	leaderboard  bidrepo.Leaderboard
	bids         bidrepo.BidRepository
	winner       WinnerService
	reservations notificationrepo.ReservationRepository
	cfg          *config.Config

	activationMu sync.Mutex
	closeoutMu   sync.Mutex
	timeoutMu    sync.Mutex
}

func NewScheduler(
	auctions auctionrepo.AuctionRepository,
	gate bidrepo.ActivityGate,
	guard bidrepo.BidGuard,
	leaderboard bidrepo.Leaderboard,
	bids bidrepo.BidRepository,
	winner WinnerService,
	reservations notificationrepo.ReservationRepository,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		auctions:     auctions,
		gate:         gate,
		guard:        guard,
		leaderboard:  leaderboard,
		bids:         bids,
		winner:       winner,
		reservations: reservations,
		cfg:          cfg,
	}
}

func (s *Scheduler) RunActivation(ctx context.Context) error {
	return s.runLoop(ctx, "activation", s.cfg.ActivationInterval, func(ctx context.Context) {
		if !s.activationMu.TryLock() {
			return
		}
		defer s.activationMu.Unlock()

		if err := s.ActivateDue(ctx, time.Now()); err != nil {
			s.cfg.Log.Error("Activation sweep failed", "error", err)
		}
	})
}

func (s *Scheduler) RunCloseout(ctx context.Context) error {
	return s.runLoop(ctx, "closeout", s.cfg.CloseoutInterval, func(ctx context.Context) {
		if !s.closeoutMu.TryLock() {
			return
		}
		defer s.closeoutMu.Unlock()

		if err := s.CloseDue(ctx, time.Now()); err != nil {
			s.cfg.Log.Error("Closeout sweep failed", "error", err)
		}
	})
}

func (s *Scheduler) RunOfferTimeout(ctx context.Context) error {
	return s.runLoop(ctx, "offer-timeout", s.cfg.OfferTimeoutInterval, func(ctx context.Context) {
		if !s.timeoutMu.TryLock() {
			return
		}
		defer s.timeoutMu.Unlock()

		if err := s.winner.SweepOfferTimeouts(ctx, time.Now()); err != nil {
			s.cfg.Log.Error("Offer timeout sweep failed", "error", err)
		}
	})
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, sweep func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cfg.Log.Info("Scheduler job started", "job", name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.cfg.Log.Info("Scheduler job stopped", "job", name)
			return ctx.Err()
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// ActivateDue opens the bidding gate for every accepted auction whose window
// contains now. Re-activating an already-open auction is a no-op, so a sweep
// that failed halfway simply finishes the job on the next tick.
func (s *Scheduler) ActivateDue(ctx context.Context, now time.Time) error {
	auctions, err := s.auctions.FindActivatable(ctx, now)
	if err != nil {
		return apperrors.Internal("Failed to list activatable auctions", err)
	}

	for _, auction := range auctions {
		opened, err := s.gate.Activate(ctx, auction.ID, auction.EndAt)
		if err != nil {
			s.cfg.Log.Error("Failed to activate auction",
				"auction_id", auction.ID,
				"error", err,
			)
			continue
		}
		if !opened {
			continue
		}

		s.cfg.Log.Info("Auction activated",
			"auction_id", auction.ID,
			"ends_at", auction.EndAt,
		)

		// Tell the broker the bidding window is open. Best-effort: a lost
		// reservation here never blocks the gate.
		if err := s.reservations.Create(ctx, &model.NotificationReservation{
			UserID:    auction.BrokerID,
			AuctionID: auction.ID,
			Type:      model.NotificationAuctionStart,
		}); err != nil {
			s.cfg.Log.Warn("Failed to reserve auction start notification",
				"auction_id", auction.ID,
				"error", err,
			)
		}
	}

	return nil
}

// CloseDue flushes every ended auction: live standings become durable bid
// rows and the auction is marked FINISHED, all in one transaction. The
// finished re-check inside that transaction is the idempotency stamp; a
// re-run after a partial failure can never insert a second set of rows.
func (s *Scheduler) CloseDue(ctx context.Context, now time.Time) error {
	auctions, err := s.auctions.FindEndedUnfinished(ctx, now)
	if err != nil {
		return apperrors.Internal("Failed to list ended auctions", err)
	}

	for _, auction := range auctions {
		if err := s.flushAuction(ctx, auction); err != nil {
			s.cfg.Log.Error("Failed to close auction",
				"auction_id", auction.ID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Scheduler) flushAuction(ctx context.Context, auction *model.Auction) error {
	cohort, err := s.leaderboard.TopK(ctx, auction.ID, s.cfg.RetentionWidth)
	if err != nil {
		return apperrors.Internal("Failed to read leaderboard cohort", err)
	}
	rest, err := s.leaderboard.Rest(ctx, auction.ID, s.cfg.RetentionWidth)
	if err != nil {
		return apperrors.Internal("Failed to read leaderboard remainder", err)
	}

	flushedAt := time.Now().UTC()
	rows := make([]*model.Bid, 0, len(cohort)+len(rest))
	for i, event := range cohort {
		rows = append(rows, &model.Bid{
			ID:          uuid.New().String(),
			AuctionID:   event.AuctionID,
			BidderID:    event.BidderID,
			AmountMinor: event.AmountMinor,
			BidAt:       event.SubmittedAt,
			Rank:        i + 1,
			Status:      model.BidStatusWaiting,
		})
	}
	for _, event := range rest {
		rows = append(rows, &model.Bid{
			ID:          uuid.New().String(),
			AuctionID:   event.AuctionID,
			BidderID:    event.BidderID,
			AmountMinor: event.AmountMinor,
			BidAt:       event.SubmittedAt,
			Rank:        model.RankNone,
			Status:      model.BidStatusLost,
			DecidedAt:   &flushedAt,
		})
	}

	alreadyFlushed := false
	err = s.bids.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.auctions.FindByID(sessCtx, auction.ID)
		if err != nil {
			return apperrors.Internal("Failed to re-check auction state", err)
		}
		if current.Finished() {
			// Another sweep (or an earlier partially-failed run) already
			// flushed this auction.
			alreadyFlushed = true
			return nil
		}

		if err := s.bids.BulkInsert(sessCtx, rows); err != nil {
			return apperrors.Internal("Failed to persist bid rows", err)
		}
		if err := s.auctions.MarkFinished(sessCtx, auction.ID, flushedAt); err != nil {
			return apperrors.Internal("Failed to mark auction finished", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyFlushed {
		return nil
	}

	// Live-store cleanup happens after the commit. The deletes are
	// idempotent and the gate TTL reaps leftovers if the process dies here.
	if err := s.guard.Clear(ctx, auction.ID); err != nil {
		s.cfg.Log.Warn("Failed to clear bid claims", "auction_id", auction.ID, "error", err)
	}
	if err := s.leaderboard.Clear(ctx, auction.ID); err != nil {
		s.cfg.Log.Warn("Failed to clear leaderboard", "auction_id", auction.ID, "error", err)
	}
	if err := s.gate.Deactivate(ctx, auction.ID); err != nil {
		s.cfg.Log.Warn("Failed to deactivate auction gate", "auction_id", auction.ID, "error", err)
	}

	s.cfg.Log.Info("Auction flushed",
		"auction_id", auction.ID,
		"cohort_size", len(cohort),
		"settled_rest", len(rest),
	)

	if len(rows) == 0 {
		return s.closeWithoutBids(ctx, auction)
	}

	return s.winner.PrepareAndOfferFirst(ctx, auction.ID)
}

// closeWithoutBids records the terminal no-winner outcome for an auction that
// ended with an empty leaderboard, so the result is queryable immediately.
func (s *Scheduler) closeWithoutBids(ctx context.Context, auction *model.Auction) error {
	if err := s.auctions.SetNoWinner(ctx, auction.ID); err != nil {
		return apperrors.Internal("Failed to record no-winner outcome", err)
	}
	s.cfg.Log.Info("Auction closed without bids", "auction_id", auction.ID)
	return nil
}
