package inbound

import (
	"context"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"

	"github.com/google/uuid"
)

// LeadIntake defines the interface for admitting new leads into the engine
type LeadIntake interface {
	// RegisterLead creates a lead with its auction window computed from
	// the creation instant and locale
	RegisterLead(ctx context.Context, req RegisterLeadRequest) (*lead.Lead, error)
}

// AuctionEngine defines the read-side interface: every path that needs a
// trustworthy auction status goes through Finalize or GetLead.
type AuctionEngine interface {
	// Finalize advances a lead's auction state against the current
	// instant, persisting at most one transition. Reports whether this
	// call applied a change.
	Finalize(ctx context.Context, l *lead.Lead) (*lead.Lead, bool, error)

	// GetLead loads and finalizes a lead. When finalization fails on a
	// store error the last-known record is returned instead: staleness is
	// preferable to unavailability on a read path.
	GetLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error)
}

// BidService defines the interface for bid operations
type BidService interface {
	// ApplyBid validates, persists and applies the rolling extension for
	// one bid in a single logical step
	ApplyBid(ctx context.Context, req PlaceBidRequest) (*lead.Lead, *bid.Bid, error)

	// GetBids retrieves the bid history for a lead
	GetBids(ctx context.Context, leadID uuid.UUID) ([]*bid.Bid, error)
}

// request to register a lead
type RegisterLeadRequest struct {
	Province       string `json:"province"`
	Country        string `json:"country"`
	AuctionEnabled bool   `json:"auction_enabled"`
}

// request to place a bid
type PlaceBidRequest struct {
	LeadID  uuid.UUID `json:"lead_id"`
	AgentID uuid.UUID `json:"agent_id"`
	Amount  int64     `json:"amount"`
}
