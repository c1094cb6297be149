package app

import (
	"context"
	"time"

	"willow-auction-engine/internal/auction"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/ports/inbound"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IntakeService admits new leads, populating their auction fields once
// from the schedule calculator. The window and pricing terms are captured
// at creation and never recomputed.
type IntakeService struct {
	leadRepo outbound.LeadRepository
	notifier outbound.Notifier
	policy   auction.Policy
	clock    func() time.Time
	logger   zerolog.Logger
}

type IntakeServiceParams struct {
	LeadRepo outbound.LeadRepository
	Notifier outbound.Notifier
	Policy   auction.Policy
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// NewIntakeService creates a new lead intake service
func NewIntakeService(params IntakeServiceParams) *IntakeService {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &IntakeService{
		leadRepo: params.LeadRepo,
		notifier: params.Notifier,
		policy:   params.Policy,
		clock:    clock,
		logger:   params.Logger.With().Str("component", "intake_service").Logger(),
	}
}

// RegisterLead creates a lead and, when auctions are enabled for it,
// stamps the computed window, captured time zone and pricing terms onto
// the record.
func (service *IntakeService) RegisterLead(ctx context.Context, req inbound.RegisterLeadRequest) (*lead.Lead, error) {
	now := service.clock()

	newLead := &lead.Lead{
		ID:        uuid.New(),
		CreatedAt: now,
		Locale: lead.Locale{
			Province: req.Province,
			Country:  req.Country,
		},
		Status:         "new",
		AuctionEnabled: req.AuctionEnabled,
		UpdatedAt:      now,
	}

	if req.AuctionEnabled {
		schedule := auction.CalculateSchedule(now, newLead.Locale, service.policy)
		newLead.AuctionStatus = schedule.Status
		newLead.AuctionStartAt = schedule.StartAt
		newLead.AuctionEndAt = schedule.EndAt
		newLead.AuctionTimezone = schedule.Timezone
		newLead.StartingBid = schedule.StartingBid
		newLead.MinIncrement = schedule.MinIncrement
		newLead.BuyNowPrice = schedule.BuyNowPrice
	}

	// A lead created inside market hours is born open and never crosses
	// the scheduled -> open boundary, so the opened alert fires here,
	// stamped before the write so the guard persists with the record.
	notifyOpened := newLead.AuctionStatus == lead.AuctionOpen
	if notifyOpened {
		sentAt := now
		newLead.NotificationSentAt = &sentAt
	}

	if err := service.leadRepo.Create(ctx, newLead); err != nil {
		service.logger.Error().Err(err).Str("lead_id", newLead.ID.String()).Msg("Failed to create lead")
		return nil, err
	}

	if notifyOpened && service.notifier != nil {
		if err := service.notifier.NotifyAuctionOpened(ctx, newLead); err != nil {
			service.logger.Error().Err(err).Str("lead_id", newLead.ID.String()).Msg("Failed to send auction opened alert")
		}
	}

	service.logger.Info().
		Str("lead_id", newLead.ID.String()).
		Str("province", req.Province).
		Str("auction_status", string(newLead.AuctionStatus)).
		Time("auction_start_at", newLead.AuctionStartAt).
		Time("auction_end_at", newLead.AuctionEndAt).
		Str("auction_timezone", newLead.AuctionTimezone).
		Msg("Lead registered")

	return newLead, nil
}
