package auction

import (
	"willow-auction-engine/internal/domain/shared"
)

// ValidateBid enforces the two increment rules on a candidate bid:
//
//  1. floor: amount must be at least one increment above the current high
//     bid, or above the starting bid when no bid exists yet;
//  2. lattice: amount minus the starting bid must be an exact multiple of
//     the increment, so bids stay on an enumerable ladder and irregular
//     amounts cannot drift the increment over time.
//
// currentBid is nil until the first accepted bid. A rejection is returned
// as a *shared.ValidationError naming the violated rule and the minimum
// acceptable amount.
func ValidateBid(amount int64, currentBid *int64, startingBid, minIncrement int64) error {
	floor := startingBid
	if currentBid != nil {
		floor = *currentBid
	}

	minAcceptable := nextLatticeAmount(floor+minIncrement, startingBid, minIncrement)

	if amount < floor+minIncrement {
		return &shared.ValidationError{
			Rule:          shared.BidRuleFloor,
			Amount:        amount,
			MinAcceptable: minAcceptable,
		}
	}

	if (amount-startingBid)%minIncrement != 0 {
		return &shared.ValidationError{
			Rule:          shared.BidRuleLattice,
			Amount:        amount,
			MinAcceptable: minAcceptable,
		}
	}

	return nil
}

// nextLatticeAmount rounds amount up to the nearest lattice point
// anchored at startingBid. Accepted bids always sit on the lattice, so
// this only moves when the floor itself is off-lattice (a repaired or
// imported record).
func nextLatticeAmount(amount, startingBid, minIncrement int64) int64 {
	rem := (amount - startingBid) % minIncrement
	if rem == 0 {
		return amount
	}
	return amount + minIncrement - rem
}
