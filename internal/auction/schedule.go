package auction

import (
	"time"

	"willow-auction-engine/internal/domain/lead"
)

// Policy carries the auction parameters fixed at lead creation: market
// hours, window and anti-snipe extension lengths, the fallback time zone
// for unmapped regions, and the pricing terms stamped onto new leads.
type Policy struct {
	MarketOpenHour  int
	MarketCloseHour int
	WindowLength    time.Duration
	Extension       time.Duration
	DefaultTimezone string

	StartingBid  int64
	MinIncrement int64
	BuyNowPrice  int64
}

// DefaultPolicy returns the standard marketplace policy: 08:00-19:00
// local market hours, 30 minute windows and extensions.
func DefaultPolicy() Policy {
	return Policy{
		MarketOpenHour:  8,
		MarketCloseHour: 19,
		WindowLength:    30 * time.Minute,
		Extension:       30 * time.Minute,
		DefaultTimezone: "America/Toronto",
		StartingBid:     1000,
		MinIncrement:    500,
		BuyNowPrice:     10000,
	}
}

// Schedule is the auction window computed for a newly created lead.
type Schedule struct {
	StartAt  time.Time
	EndAt    time.Time
	Status   lead.AuctionStatus
	Timezone string

	StartingBid  int64
	MinIncrement int64
	BuyNowPrice  int64
}

// CalculateSchedule maps a lead's creation instant and locale to its
// auction window. The seller's local market runs from MarketOpenHour to
// MarketCloseHour; a lead created inside those hours opens immediately
// with no intervening scheduled state. A lead created before opening is
// scheduled for the same day's opening; one created at or after closing
// waits for the next day's. The window always lasts exactly WindowLength
// and may straddle the market close.
//
// The function is pure: the same inputs always yield the same schedule,
// so a stored window can be re-derived for auditing.
func CalculateSchedule(createdAt time.Time, locale lead.Locale, policy Policy) Schedule {
	loc, zone := resolveZone(locale, policy.DefaultTimezone)
	local := createdAt.In(loc)

	year, month, day := local.Date()
	marketOpen := time.Date(year, month, day, policy.MarketOpenHour, 0, 0, 0, loc)
	marketClose := time.Date(year, month, day, policy.MarketCloseHour, 0, 0, 0, loc)

	var startAt time.Time
	var status lead.AuctionStatus
	switch {
	case local.Before(marketOpen):
		startAt = marketOpen
		status = lead.AuctionScheduled
	case local.Before(marketClose):
		startAt = createdAt
		status = lead.AuctionOpen
	default:
		startAt = marketOpen.AddDate(0, 0, 1)
		status = lead.AuctionScheduled
	}

	return Schedule{
		StartAt:      startAt.UTC(),
		EndAt:        startAt.Add(policy.WindowLength).UTC(),
		Status:       status,
		Timezone:     zone,
		StartingBid:  policy.StartingBid,
		MinIncrement: policy.MinIncrement,
		BuyNowPrice:  policy.BuyNowPrice,
	}
}

// Extend computes the rolling end an accepted bid pushes the window to:
// a fixed Extension past the bid's placement instant. Stored in UTC like
// every other auction instant; the lead's captured zone only matters for
// calendar math, never for durations.
func Extend(placedAt time.Time, policy Policy) time.Time {
	return placedAt.Add(policy.Extension).UTC()
}
