package shared

import (
	"errors"
	"fmt"
)

// Domain-specific errors
var (
	// Lead errors
	ErrLeadNotFound       = errors.New("lead not found")
	ErrAuctionNotOpen     = errors.New("auction is not open for bidding")
	ErrAuctionNotEligible = errors.New("lead does not participate in auctions")

	// Bid errors
	ErrNoBidsFound = errors.New("no bids found")
	ErrBidConflict = errors.New("bid lost a concurrent update race")

	// Conditional write errors
	ErrStatusConflict = errors.New("auction status changed concurrently")

	// Database errors
	ErrDatabaseConnection = errors.New("database connection failed")
	ErrDatabaseQuery      = errors.New("database query failed")

	// Notifier errors
	ErrNotifyFailed = errors.New("auction opened notification failed")

	// Feed message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrProvinceRequired    = errors.New("at least one province is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)

// BidRule names the validation rule a rejected bid violated.
type BidRule string

const (
	// BidRuleFloor: the bid must exceed the current high bid (or the
	// starting bid when none exists) by at least one increment.
	BidRuleFloor BidRule = "floor"
	// BidRuleLattice: the bid must sit on the increment lattice anchored
	// at the starting bid.
	BidRuleLattice BidRule = "increment_lattice"
)

// ValidationError reports why a bid was rejected and the smallest amount
// that would have been accepted, so callers can show an actionable message.
type ValidationError struct {
	Rule          BidRule
	Amount        int64
	MinAcceptable int64
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case BidRuleLattice:
		return fmt.Sprintf("bid of %d is off the increment lattice, next acceptable amount is %d", e.Amount, e.MinAcceptable)
	default:
		return fmt.Sprintf("bid of %d is below the floor, minimum acceptable amount is %d", e.Amount, e.MinAcceptable)
	}
}

// IsValidation reports whether err is a bid validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
