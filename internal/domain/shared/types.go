package shared

import (
	"time"

	"github.com/google/uuid"
)

// AuctionResolution records the outcome of closing a lead's auction.
// WinnerID and WinningAmount are nil when the window elapsed with no bids.
type AuctionResolution struct {
	LeadID        uuid.UUID
	WinnerID      *uuid.UUID
	WinningAmount *int64
	ClosedAt      time.Time
}
