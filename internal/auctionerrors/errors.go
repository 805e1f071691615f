package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoBids               = errors.New("no bids found for item")
	ErrUserExists           = errors.New("user already exists")
)

// business logic errors
var (
	ErrInvalidBid         = errors.New("invalid bid")
	ErrIncrementTooLow    = errors.New("increment bid amount below minimum")
	ErrSellerBid          = errors.New("seller cannot bid on own item")
	ErrAuctionNotBiddable = errors.New("auction is not open for bidding")
	ErrInvalidItem        = errors.New("invalid item")
	ErrInvalidUser        = errors.New("invalid user")
)

// Kind is the coarse failure classification surfaced to clients: HTTP
// handlers map it to a status code, the realtime gateway to an error event.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindInvalidState    Kind = "INVALID_STATE"
	KindInternal        Kind = "INTERNAL"
)

// KindOf classifies err into the error taxonomy. Unknown errors are Internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrBidNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNotificationNotFound),
		errors.Is(err, ErrNoBids):
		return KindNotFound
	case errors.Is(err, ErrSellerBid):
		return KindForbidden
	case errors.Is(err, ErrInvalidBid),
		errors.Is(err, ErrIncrementTooLow),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrInvalidUser),
		errors.Is(err, ErrUserExists):
		return KindInvalidArgument
	case errors.Is(err, ErrAuctionNotBiddable):
		return KindInvalidState
	default:
		return KindInternal
	}
}
