package outbound

import (
	"context"
	"time"

	"willow-auction-engine/internal/domain/lead"

	"github.com/google/uuid"
)

// AuctionOpenedEvent is the alert fanned out to eligible agents when a
// lead's bidding window opens.
type AuctionOpenedEvent struct {
	LeadID       uuid.UUID `json:"lead_id"`
	Province     string    `json:"province"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	StartingBid  int64     `json:"starting_bid"`
	MinIncrement int64     `json:"min_increment"`
	BuyNowPrice  int64     `json:"buy_now_price"`
}

// NewAuctionOpenedEvent builds the alert payload for a lead whose window
// just opened.
func NewAuctionOpenedEvent(l *lead.Lead) AuctionOpenedEvent {
	return AuctionOpenedEvent{
		LeadID:       l.ID,
		Province:     l.Locale.Province,
		StartAt:      l.AuctionStartAt,
		EndAt:        l.AuctionEndAt,
		StartingBid:  l.StartingBid,
		MinIncrement: l.MinIncrement,
		BuyNowPrice:  l.BuyNowPrice,
	}
}

// Notifier fans out auction lifecycle alerts to agents. Delivery is
// best-effort from the engine's perspective: a failed notification is
// logged by the caller and never blocks a status transition.
type Notifier interface {
	// NotifyAuctionOpened alerts eligible agents that bidding opened on a lead
	NotifyAuctionOpened(ctx context.Context, l *lead.Lead) error
}

// Subscriber is the consuming side of the opened-auction stream, used by
// delivery surfaces such as the agent live feed.
type Subscriber interface {
	// Subscribe registers a client for opened-auction alerts in the given
	// provinces; events are delivered on eventChan until Unsubscribe
	Subscribe(ctx context.Context, clientID string, provinces []string, eventChan chan AuctionOpenedEvent) error

	// Unsubscribe removes a client's registration and closes its channel
	Unsubscribe(ctx context.Context, clientID string) error
}
