package outbound

import (
	"context"
	"time"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"

	"github.com/google/uuid"
)

// LeadRepository defines the interface for lead data operations
type LeadRepository interface {
	// Create creates a new lead with its auction fields populated
	Create(ctx context.Context, l *lead.Lead) error

	// GetByID retrieves a lead by ID
	GetByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error)

	// ListByAuctionStatus retrieves auction-enabled leads in the given status
	ListByAuctionStatus(ctx context.Context, status lead.AuctionStatus, page, pageSize int) ([]*lead.Lead, error)

	// UpdateAuctionState persists the lead's auction fields with a single
	// conditional write predicated on the previously observed status and
	// window end. Returns shared.ErrStatusConflict when another caller
	// advanced the status or extended the window first; the caller is
	// expected to re-read rather than retry.
	UpdateAuctionState(ctx context.Context, l *lead.Lead, expectedStatus lead.AuctionStatus, expectedEndAt time.Time) error
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// GetByLeadID retrieves all bids for a lead ordered by amount
	// descending, then placement ascending
	GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the current winning bid for a lead, or
	// shared.ErrNoBidsFound when none exists
	GetHighestBid(ctx context.Context, leadID uuid.UUID) (*bid.Bid, error)

	// PlaceBid atomically appends an accepted bid and advances the lead's
	// current bid amount and rolling end, predicated on the previously
	// observed current bid. Returns shared.ErrBidConflict when a
	// concurrent bid won the race and shared.ErrAuctionNotOpen when the
	// window closed in the meantime.
	PlaceBid(ctx context.Context, b *bid.Bid, expectedCurrent *int64, newEndAt time.Time) error
}
