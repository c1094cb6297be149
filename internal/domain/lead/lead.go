package lead

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus represents where a lead's bidding window is in its lifecycle
type AuctionStatus string

const (
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionOpen      AuctionStatus = "open"
	AuctionClosed    AuctionStatus = "closed"
)

// Locale identifies the region a lead was created in, used to resolve
// the time zone the auction schedule is computed in.
type Locale struct {
	Province string `json:"province"`
	Country  string `json:"country"`
}

// Lead represents a family's service request being auctioned to agents.
// Only the auction fields are owned by this engine; Status and
// AssignedAgentID belong to the broader lead lifecycle and are never
// written here.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Locale    Locale    `json:"locale"`

	Status          string     `json:"status"`
	AssignedAgentID *uuid.UUID `json:"assigned_agent_id,omitempty"`

	AuctionEnabled  bool          `json:"auction_enabled"`
	AuctionStatus   AuctionStatus `json:"auction_status,omitempty"`
	AuctionStartAt  time.Time     `json:"auction_start_at"`
	AuctionEndAt    time.Time     `json:"auction_end_at"`
	AuctionTimezone string        `json:"auction_timezone"`

	StartingBid  int64 `json:"starting_bid"`
	MinIncrement int64 `json:"min_increment"`
	BuyNowPrice  int64 `json:"buy_now_price"`

	CurrentBidAmount   *int64     `json:"current_bid_amount,omitempty"`
	WinningAgentID     *uuid.UUID `json:"winning_agent_id,omitempty"`
	NotificationSentAt *time.Time `json:"notification_sent_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasAuction returns true when the lead participates in the auction engine
func (l *Lead) HasAuction() bool {
	return l.AuctionEnabled && l.AuctionStatus != ""
}

// CanBid returns true if a bid can be placed on this lead
func (l *Lead) CanBid() bool {
	return l.HasAuction() && l.AuctionStatus == AuctionOpen
}

// IsClosed returns true if the lead's auction has reached its terminal state
func (l *Lead) IsClosed() bool {
	return l.AuctionStatus == AuctionClosed
}

// BidFloor returns the amount the next bid must clear by at least one
// increment: the current high bid, or the starting bid before any bid exists.
func (l *Lead) BidFloor() int64 {
	if l.CurrentBidAmount != nil {
		return *l.CurrentBidAmount
	}
	return l.StartingBid
}
