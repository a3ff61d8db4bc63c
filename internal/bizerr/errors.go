// Package bizerr holds the error taxonomy shared by the services and the HTTP layer.
package bizerr

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Not-found errors per entity; errors.Is(err, ErrNotFound) holds for all of them.
var (
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrAuctionNotFound = fmt.Errorf("auction %w", ErrNotFound)
	ErrBidNotFound     = fmt.Errorf("bid %w", ErrNotFound)
	ErrEntryNotFound   = fmt.Errorf("ledger entry %w", ErrNotFound)
)

// business rule errors
var (
	ErrAuctionNotOpen    = errors.New("auction is not open")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("operation not permitted")
	ErrAlreadyFinalized  = errors.New("auction already finalized")
	ErrInvalidRequest    = errors.New("invalid request")
)

// concurrency errors
var (
	ErrConflict = errors.New("concurrent modification, please retry")
	ErrBusy     = errors.New("resource busy, please retry")
)

// Invalid wraps ErrInvalidRequest with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
