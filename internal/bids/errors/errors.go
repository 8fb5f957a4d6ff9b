package errors

import "errors"

var (
	ErrNotFound = errors.New("bid not found")

	ErrAuctionNotLive = errors.New("auction is not accepting bids")

	ErrDuplicateBid = errors.New("bidder has already bid on this auction")
)
