package auction

import (
	"time"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"
)

// Transition describes the single state change a lead is due for at a
// given instant, plus the side effects the caller must carry out with it.
type Transition struct {
	From lead.AuctionStatus
	To   lead.AuctionStatus

	// NotifyOpened is set when the transition lands on open and the
	// opened alert has not been sent yet. It is deliberately false on a
	// catch-up pass that carries a scheduled lead straight to closed:
	// alerting agents about a window that is already shut would only
	// invite bids that get rejected.
	NotifyOpened bool

	// ResolveWinner is set when the transition lands on closed, telling
	// the caller to load the bid history and pick the winner.
	ResolveWinner bool
}

// Plan evaluates the auction lifecycle for a lead against an injected
// instant and returns the transition it is due for, if any. Status only
// ever advances scheduled -> open -> closed; because evaluation is lazy,
// a scheduled lead whose whole window elapsed before anyone read it is
// planned directly to closed in one pass.
func Plan(l *lead.Lead, now time.Time) (Transition, bool) {
	if !l.HasAuction() {
		return Transition{}, false
	}

	switch l.AuctionStatus {
	case lead.AuctionScheduled:
		if !now.Before(l.AuctionEndAt) {
			return Transition{
				From:          lead.AuctionScheduled,
				To:            lead.AuctionClosed,
				ResolveWinner: true,
			}, true
		}
		if !now.Before(l.AuctionStartAt) {
			return Transition{
				From:         lead.AuctionScheduled,
				To:           lead.AuctionOpen,
				NotifyOpened: l.NotificationSentAt == nil,
			}, true
		}
	case lead.AuctionOpen:
		if !now.Before(l.AuctionEndAt) {
			return Transition{
				From:          lead.AuctionOpen,
				To:            lead.AuctionClosed,
				ResolveWinner: true,
			}, true
		}
	}

	return Transition{}, false
}

// ResolveWinner picks the winning bid from a lead's history: the maximum
// amount, with ties broken by the earliest placement. Returns nil when no
// bids were placed; closing with no bids is a normal outcome, not an
// error.
func ResolveWinner(bids []*bid.Bid) *bid.Bid {
	var best *bid.Bid
	for _, b := range bids {
		if b.Outbids(best) {
			best = b
		}
	}
	return best
}
