package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("auction room not found")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrBidTooLow         = errors.New("bid must be higher than current bid")
	ErrConsecutiveBidder = errors.New("cannot place consecutive bids, wait for another user to bid first")
	ErrCreatorCannotBid  = errors.New("auction creator cannot bid on their own auction")
	ErrInvalidAmount     = errors.New("bid amount must be greater than zero")
	ErrNotCreator        = errors.New("only the auction creator may do this")
	ErrUserNotFound      = errors.New("user not found")

	// ErrIndeterminate marks an operation that failed while talking to the
	// durable store. The caller must re-fetch room state before retrying,
	// blind resubmission could double-apply.
	ErrIndeterminate = errors.New("operation outcome indeterminate, re-check current room state")
)
