package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents an agent's offer on a lead. Bids are append-only: once
// accepted and stored they are never mutated or deleted, so the history
// stays auditable after the auction closes.
type Bid struct {
	ID       uuid.UUID `json:"id"`
	LeadID   uuid.UUID `json:"lead_id"`
	AgentID  uuid.UUID `json:"agent_id"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// Outbids returns true if this bid beats the other one under the
// resolution ordering: higher amount wins, earlier placement breaks ties.
func (b *Bid) Outbids(other *Bid) bool {
	if other == nil {
		return true
	}
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.PlacedAt.Before(other.PlacedAt)
}
