package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auctionserrors "bidhouse/internal/auctions/errors"
	auctionrepo "bidhouse/internal/auctions/repository"
	bidserrors "bidhouse/internal/bids/errors"
	bidrepo "bidhouse/internal/bids/repository"
	notificationrepo "bidhouse/internal/notifications/repository"
	"bidhouse/pkg/config"
	apperrors "bidhouse/pkg/errors"
	"bidhouse/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ResultNegotiating = "NEGOTIATING"
	ResultAccepted    = "ACCEPTED"
	ResultNoWinner    = "NO_WINNER"
)

type WinnerResult struct {
	AuctionID string `json:"auction_id"`
	Status    string `json:"status"`
	WinnerID  string `json:"winner_id,omitempty"`
}

// WinnerService drives the post-auction negotiation: one finalist holds the
// offer at a time, accept crowns a winner, reject passes the offer down the
// ranks until someone accepts or the list runs out.
type WinnerService interface {
	PrepareAndOfferFirst(ctx context.Context, auctionID string) error
	Accept(ctx context.Context, bidderID, auctionID string) error
	Reject(ctx context.Context, bidderID, auctionID string) error
	Result(ctx context.Context, auctionID string) (*WinnerResult, error)
	SweepOfferTimeouts(ctx context.Context, now time.Time) error
}

type winnerService struct {
	bids         bidrepo.BidRepository
	auctions     auctionrepo.AuctionRepository
	reservations notificationrepo.ReservationRepository
	cfg          *config.Config
}

func NewWinnerService(
	bids bidrepo.BidRepository,
	auctions auctionrepo.AuctionRepository,
	reservations notificationrepo.ReservationRepository,
	cfg *config.Config,
) WinnerService {
	return &winnerService{
		bids:         bids,
		auctions:     auctions,
		reservations: reservations,
		cfg:          cfg,
	}
}

// PrepareAndOfferFirst seeds the negotiation: the top bids get dense finalist
// ranks and the best one receives the offer. Calling it again after the
// negotiation started is a no-op, so crash-recovery can always re-run it.
func (s *winnerService) PrepareAndOfferFirst(ctx context.Context, auctionID string) error {
	if auctionID == "" {
		return apperrors.InvalidInput("Auction ID cannot be empty")
	}

	err := s.bids.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		rows, err := s.bids.FindByAuction(sessCtx, auctionID)
		if err != nil {
			return apperrors.Internal("Failed to load bids", err)
		}
		if len(rows) == 0 {
			return nil
		}

		var finalists []*model.Bid
		for _, row := range rows {
			switch row.Status {
			case model.BidStatusWaiting:
				if len(finalists) < s.cfg.FinalistCount {
					finalists = append(finalists, row)
				}
			case model.BidStatusLost:
				// settled at flush
			default:
				// Negotiation already started.
				return nil
			}
		}
		if len(finalists) == 0 {
			return nil
		}

		for i, f := range finalists {
			if err := s.bids.SetRankStatus(sessCtx, f.ID, i+1, model.BidStatusWaiting); err != nil {
				return apperrors.Internal("Failed to assign finalist rank", err)
			}
			f.Rank = i + 1
		}

		if err := s.bids.MarkLostBelow(sessCtx, auctionID, s.cfg.FinalistCount, time.Now().UTC()); err != nil {
			return apperrors.Internal("Failed to settle non-finalists", err)
		}

		return s.offer(sessCtx, finalists[0])
	})
	if err != nil {
		s.cfg.Log.Error("Failed to prepare winner negotiation", "auction_id", auctionID, "error", err)
		return err
	}

	return nil
}

func (s *winnerService) Accept(ctx context.Context, bidderID, auctionID string) error {
	err := s.bids.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.currentOffer(sessCtx, auctionID, bidderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.bids.SetStatus(sessCtx, current.ID, model.BidStatusAccepted, &now); err != nil {
			return apperrors.Internal("Failed to accept offer", err)
		}
		if err := s.bids.MarkLostBelow(sessCtx, auctionID, current.Rank, now); err != nil {
			return apperrors.Internal("Failed to settle remaining finalists", err)
		}
		if err := s.auctions.SetWinner(sessCtx, auctionID, bidderID); err != nil {
			return apperrors.Internal("Failed to record auction winner", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Offer accepted", "auction_id", auctionID, "winner_id", bidderID)
	return nil
}

func (s *winnerService) Reject(ctx context.Context, bidderID, auctionID string) error {
	err := s.bids.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.currentOffer(sessCtx, auctionID, bidderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.bids.SetStatus(sessCtx, current.ID, model.BidStatusRejected, &now); err != nil {
			return apperrors.Internal("Failed to reject offer", err)
		}

		return s.offerNextOrClose(sessCtx, auctionID, current.Rank)
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Offer rejected", "auction_id", auctionID, "bidder_id", bidderID)
	return nil
}

func (s *winnerService) Result(ctx context.Context, auctionID string) (*WinnerResult, error) {
	auction, err := s.auctions.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, auctionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Auction", auctionID)
		}
		return nil, apperrors.Internal("Failed to retrieve auction", err)
	}

	if !auction.Finished() {
		return nil, apperrors.Conflict("Auction has not finished yet")
	}

	result := &WinnerResult{AuctionID: auctionID, Status: ResultNegotiating}
	switch {
	case auction.WinnerID != "":
		result.Status = ResultAccepted
		result.WinnerID = auction.WinnerID
	case auction.NoWinner:
		result.Status = ResultNoWinner
	}

	return result, nil
}

// SweepOfferTimeouts expires offers whose response window has passed and
// moves the offer down the line. Each auction is handled in its own
// transaction; one failure never blocks the rest of the sweep.
func (s *winnerService) SweepOfferTimeouts(ctx context.Context, now time.Time) error {
	auctions, err := s.auctions.FindFinishedUndecided(ctx)
	if err != nil {
		return apperrors.Internal("Failed to list undecided auctions", err)
	}

	for _, auction := range auctions {
		if err := s.timeoutAuction(ctx, auction, now); err != nil {
			s.cfg.Log.Error("Offer timeout sweep failed for auction",
				"auction_id", auction.ID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *winnerService) timeoutAuction(ctx context.Context, auction *model.Auction, now time.Time) error {
	offered, err := s.bids.FindOffered(ctx, auction.ID)
	if err != nil {
		return apperrors.Internal("Failed to load offered bid", err)
	}
	if len(offered) == 0 {
		// Flush committed but seeding never ran (crash in between).
		// PrepareAndOfferFirst is a no-op otherwise, so recovery is safe.
		return s.PrepareAndOfferFirst(ctx, auction.ID)
	}

	return s.bids.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		offered, err := s.bids.FindOffered(sessCtx, auction.ID)
		if err != nil {
			return apperrors.Internal("Failed to load offered bid", err)
		}
		if len(offered) == 0 {
			return nil
		}
		if len(offered) > 1 {
			s.cfg.Log.Error("Multiple offered bids for auction",
				"auction_id", auction.ID,
				"count", len(offered),
			)
			return apperrors.Invariant(fmt.Sprintf("auction %s has %d offered bids", auction.ID, len(offered)))
		}

		current := offered[0]

		// Each rank gets one full response window, counted from the
		// auction's end.
		deadline := auction.EndAt.Add(time.Duration(current.Rank) * s.cfg.OfferTTL)
		if now.Before(deadline) {
			return nil
		}

		decidedAt := now.UTC()
		if err := s.bids.SetStatus(sessCtx, current.ID, model.BidStatusTimeout, &decidedAt); err != nil {
			return apperrors.Internal("Failed to expire offer", err)
		}

		s.cfg.Log.Info("Offer timed out",
			"auction_id", auction.ID,
			"bidder_id", current.BidderID,
			"rank", current.Rank,
		)

		return s.offerNextOrClose(sessCtx, auction.ID, current.Rank)
	})
}

// currentOffer loads the single OFFERED row and checks ownership. More than
// one offered row is a broken invariant: it is reported loudly and never
// repaired in place.
func (s *winnerService) currentOffer(sessCtx mongo.SessionContext, auctionID, bidderID string) (*model.Bid, error) {
	offered, err := s.bids.FindOffered(sessCtx, auctionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load offered bid", err)
	}
	if len(offered) == 0 {
		return nil, apperrors.NotFound("Offer")
	}
	if len(offered) > 1 {
		s.cfg.Log.Error("Multiple offered bids for auction",
			"auction_id", auctionID,
			"count", len(offered),
		)
		return nil, apperrors.Invariant(fmt.Sprintf("auction %s has %d offered bids", auctionID, len(offered)))
	}

	current := offered[0]
	if current.BidderID != bidderID {
		return nil, apperrors.Forbidden("The offer does not belong to this bidder")
	}

	return current, nil
}

func (s *winnerService) offer(sessCtx mongo.SessionContext, bid *model.Bid) error {
	now := time.Now().UTC()
	if err := s.bids.SetStatus(sessCtx, bid.ID, model.BidStatusOffered, &now); err != nil {
		return apperrors.Internal("Failed to offer bid", err)
	}

	if err := s.reservations.Create(sessCtx, &model.NotificationReservation{
		UserID:    bid.BidderID,
		AuctionID: bid.AuctionID,
		Type:      model.NotificationAuctionOffer,
	}); err != nil {
		return apperrors.Internal("Failed to reserve offer notification", err)
	}

	s.cfg.Log.Info("Offer extended",
		"auction_id", bid.AuctionID,
		"bidder_id", bid.BidderID,
		"rank", bid.Rank,
	)
	return nil
}

// offerNextOrClose moves the offer to the next waiting finalist, or closes
// the negotiation with the terminal no-winner outcome when none remain.
func (s *winnerService) offerNextOrClose(sessCtx mongo.SessionContext, auctionID string, afterRank int) error {
	next, err := s.bids.FindNextWaiting(sessCtx, auctionID, afterRank)
	if err != nil {
		if errors.Is(err, bidserrors.ErrNotFound) {
			return s.closeNoWinner(sessCtx, auctionID)
		}
		return apperrors.Internal("Failed to find next finalist", err)
	}

	return s.offer(sessCtx, next)
}

func (s *winnerService) closeNoWinner(sessCtx mongo.SessionContext, auctionID string) error {
	if err := s.auctions.SetNoWinner(sessCtx, auctionID); err != nil {
		return apperrors.Internal("Failed to record no-winner outcome", err)
	}

	auction, err := s.auctions.FindByID(sessCtx, auctionID)
	if err != nil {
		return apperrors.Internal("Failed to load auction for no-winner notification", err)
	}

	if err := s.reservations.Create(sessCtx, &model.NotificationReservation{
		UserID:    auction.BrokerID,
		AuctionID: auctionID,
		Type:      model.NotificationAuctionNoWinner,
	}); err != nil {
		return apperrors.Internal("Failed to reserve no-winner notification", err)
	}

	s.cfg.Log.Info("Negotiation closed without winner", "auction_id", auctionID)
	return nil
}
