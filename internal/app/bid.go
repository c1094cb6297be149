package app

import (
	"context"
	"errors"
	"time"

	"willow-auction-engine/internal/auction"
	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"
	"willow-auction-engine/internal/ports/inbound"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BidService implements bid submission. A bid is validated against the
// freshest lead state, appended, and the rolling window extension applied
// in one conditional step, so "does this bid close the auction" and "does
// this bid extend it" are both answered against a single instant.
type BidService struct {
	leadRepo  outbound.LeadRepository
	bidRepo   outbound.BidRepository
	finalizer *Finalizer
	policy    auction.Policy
	clock     func() time.Time
	logger    zerolog.Logger
}

type BidServiceParams struct {
	LeadRepo  outbound.LeadRepository
	BidRepo   outbound.BidRepository
	Finalizer *Finalizer
	Policy    auction.Policy
	Clock     func() time.Time
	Logger    zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &BidService{
		leadRepo:  params.LeadRepo,
		bidRepo:   params.BidRepo,
		finalizer: params.Finalizer,
		policy:    params.Policy,
		clock:     clock,
		logger:    params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// ApplyBid validates and persists one bid. The lead is finalized first so
// validation sees a trustworthy status; the insert itself is predicated
// on the observed current bid, and a lost race is retried once against
// the refreshed record before surfacing shared.ErrBidConflict. Every
// accepted bid pushes the window end to its placement instant plus the
// policy extension.
func (service *BidService) ApplyBid(ctx context.Context, req inbound.PlaceBidRequest) (*lead.Lead, *bid.Bid, error) {
	service.logger.Info().
		Str("lead_id", req.LeadID.String()).
		Str("agent_id", req.AgentID.String()).
		Int64("amount", req.Amount).
		Msg("Attempting to place bid")

	l, err := service.leadRepo.GetByID(ctx, req.LeadID)
	if err != nil {
		service.logger.Error().Err(err).Str("lead_id", req.LeadID.String()).Msg("Lead not found")
		return nil, nil, err
	}

	// Bid submission is a write path: a finalization failure here fails
	// the request instead of falling back to stale state.
	l, _, err = service.finalizer.Finalize(ctx, l)
	if err != nil {
		return nil, nil, err
	}

	placed, err := service.tryPlaceBid(ctx, l, req)
	if errors.Is(err, shared.ErrBidConflict) {
		service.logger.Debug().
			Str("lead_id", req.LeadID.String()).
			Msg("Bid lost an update race, retrying against refreshed lead")

		if l, err = service.leadRepo.GetByID(ctx, req.LeadID); err != nil {
			return nil, nil, err
		}
		if l, _, err = service.finalizer.Finalize(ctx, l); err != nil {
			return nil, nil, err
		}
		placed, err = service.tryPlaceBid(ctx, l, req)
	}
	if err != nil {
		return nil, nil, err
	}

	// Reflect the accepted bid on the returned record without another read.
	updated := *l
	amount := placed.Amount
	updated.CurrentBidAmount = &amount
	updated.AuctionEndAt = auction.Extend(placed.PlacedAt, service.policy)
	updated.UpdatedAt = placed.PlacedAt

	service.logger.Info().
		Str("bid_id", placed.ID.String()).
		Str("lead_id", placed.LeadID.String()).
		Str("agent_id", placed.AgentID.String()).
		Int64("amount", placed.Amount).
		Time("auction_end_at", updated.AuctionEndAt).
		Msg("Bid placed")

	return &updated, placed, nil
}

// tryPlaceBid runs validation and the conditional insert against one
// observed lead state.
func (service *BidService) tryPlaceBid(ctx context.Context, l *lead.Lead, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	if !l.CanBid() {
		service.logger.Warn().
			Str("lead_id", l.ID.String()).
			Str("auction_status", string(l.AuctionStatus)).
			Msg("Lead not accepting bids")
		return nil, shared.ErrAuctionNotOpen
	}

	if err := auction.ValidateBid(req.Amount, l.CurrentBidAmount, l.StartingBid, l.MinIncrement); err != nil {
		var ve *shared.ValidationError
		if errors.As(err, &ve) {
			service.logger.Warn().
				Str("lead_id", l.ID.String()).
				Str("rule", string(ve.Rule)).
				Int64("amount", ve.Amount).
				Int64("min_acceptable", ve.MinAcceptable).
				Msg("Bid rejected")
		}
		return nil, err
	}

	now := service.clock()
	newBid := &bid.Bid{
		ID:       uuid.New(),
		LeadID:   l.ID,
		AgentID:  req.AgentID,
		Amount:   req.Amount,
		PlacedAt: now,
	}

	newEndAt := auction.Extend(now, service.policy)
	if err := service.bidRepo.PlaceBid(ctx, newBid, l.CurrentBidAmount, newEndAt); err != nil {
		return nil, err
	}
	return newBid, nil
}

// GetBids retrieves the bid history for a lead
func (service *BidService) GetBids(ctx context.Context, leadID uuid.UUID) ([]*bid.Bid, error) {
	return service.bidRepo.GetByLeadID(ctx, leadID)
}
