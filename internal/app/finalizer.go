package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"willow-auction-engine/internal/auction"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Finalizer advances a lead's auction state as a side effect of reads.
// There is no background scheduler: every path that needs a trustworthy
// auction status passes its lead through Finalize, which evaluates the
// state machine against the current instant and persists at most one
// transition with a conditional write. Racing finalizations of the same
// lead are resolved by the write predicate, never by locking.
type Finalizer struct {
	leadRepo outbound.LeadRepository
	bidRepo  outbound.BidRepository
	notifier outbound.Notifier
	clock    func() time.Time
	logger   zerolog.Logger
}

type FinalizerParams struct {
	LeadRepo outbound.LeadRepository
	BidRepo  outbound.BidRepository
	Notifier outbound.Notifier
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// NewFinalizer creates a new lazy finalizer
func NewFinalizer(params FinalizerParams) *Finalizer {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Finalizer{
		leadRepo: params.LeadRepo,
		bidRepo:  params.BidRepo,
		notifier: params.Notifier,
		clock:    clock,
		logger:   params.Logger.With().Str("component", "finalizer").Logger(),
	}
}

// Finalize evaluates the lead's auction lifecycle against the current
// instant and persists any due transition. Returns the trustworthy
// record, whether this call applied a change, and any store error. When
// a concurrent caller wins the conditional write the now-current record
// is re-read and returned; losing the race is not an error.
func (f *Finalizer) Finalize(ctx context.Context, l *lead.Lead) (*lead.Lead, bool, error) {
	if l == nil || !l.HasAuction() {
		return l, false, nil
	}

	now := f.clock()
	plan, due := auction.Plan(l, now)
	if !due {
		return l, false, nil
	}

	updated := *l
	updated.AuctionStatus = plan.To
	updated.UpdatedAt = now

	if plan.ResolveWinner {
		bids, err := f.bidRepo.GetByLeadID(ctx, l.ID)
		if err != nil {
			return l, false, fmt.Errorf("failed to load bids for resolution: %w", err)
		}
		if winner := auction.ResolveWinner(bids); winner != nil {
			agentID := winner.AgentID
			amount := winner.Amount
			updated.WinningAgentID = &agentID
			updated.CurrentBidAmount = &amount
		}
	}

	// The guard is stamped in the same row write as the status change so
	// two racers can never both observe it unset.
	if plan.NotifyOpened {
		sentAt := now
		updated.NotificationSentAt = &sentAt
	}

	// The write is keyed on the status and window end this evaluation
	// observed, so a finalizer holding a pre-extension end instant loses
	// the race instead of closing an auction a concurrent bid just
	// extended.
	err := f.leadRepo.UpdateAuctionState(ctx, &updated, plan.From, l.AuctionEndAt)
	if errors.Is(err, shared.ErrStatusConflict) {
		f.logger.Debug().
			Str("lead_id", l.ID.String()).
			Str("from", string(plan.From)).
			Str("to", string(plan.To)).
			Msg("Lost finalization race, re-reading current state")

		current, readErr := f.leadRepo.GetByID(ctx, l.ID)
		if readErr != nil {
			return l, false, fmt.Errorf("failed to re-read lead after conflict: %w", readErr)
		}
		return current, false, nil
	}
	if err != nil {
		return l, false, fmt.Errorf("failed to persist auction transition: %w", err)
	}

	// Notification is best-effort: the transition already committed and
	// must not be rolled back or retried because an alert failed.
	if plan.NotifyOpened && f.notifier != nil {
		if nerr := f.notifier.NotifyAuctionOpened(ctx, &updated); nerr != nil {
			f.logger.Error().Err(nerr).Str("lead_id", updated.ID.String()).Msg("Failed to send auction opened alert")
		}
	}

	f.logger.Info().
		Str("lead_id", updated.ID.String()).
		Str("from", string(plan.From)).
		Str("to", string(plan.To)).
		Bool("notified", plan.NotifyOpened).
		Msg("Auction state advanced")

	return &updated, true, nil
}

// GetLead loads and finalizes a lead for a read path. A finalization
// failure downgrades to the last-known record: staleness beats
// unavailability for reads.
func (f *Finalizer) GetLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	l, err := f.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	finalized, _, err := f.Finalize(ctx, l)
	if err != nil {
		f.logger.Warn().Err(err).Str("lead_id", id.String()).Msg("Finalization failed, returning last-known state")
		return l, nil
	}
	return finalized, nil
}

// ListByStatus returns finalized leads currently in the given auction
// status. Each lead is finalized individually; ones that advance out of
// the requested status during finalization are dropped from the page.
func (f *Finalizer) ListByStatus(ctx context.Context, status lead.AuctionStatus, page, pageSize int) ([]*lead.Lead, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	leads, err := f.leadRepo.ListByAuctionStatus(ctx, status, page, pageSize)
	if err != nil {
		return nil, err
	}

	result := make([]*lead.Lead, 0, len(leads))
	for _, l := range leads {
		finalized, _, err := f.Finalize(ctx, l)
		if err != nil {
			f.logger.Warn().Err(err).Str("lead_id", l.ID.String()).Msg("Finalization failed during listing, keeping last-known state")
			finalized = l
		}
		if finalized.AuctionStatus == status {
			result = append(result, finalized)
		}
	}
	return result, nil
}
