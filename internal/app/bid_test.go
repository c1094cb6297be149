package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"willow-auction-engine/internal/auction"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"
	"willow-auction-engine/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBidService(leadRepo *fakeLeadRepo, bidRepo *fakeBidRepo, now time.Time) *BidService {
	finalizer := newTestFinalizer(leadRepo, bidRepo, &fakeNotifier{}, now)
	return NewBidService(BidServiceParams{
		LeadRepo:  leadRepo,
		BidRepo:   bidRepo,
		Finalizer: finalizer,
		Policy:    auction.DefaultPolicy(),
		Clock:     fixedClock(now),
		Logger:    zerolog.Nop(),
	})
}

func TestApplyBidAcceptsFirstBid(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	l := testLead(lead.AuctionOpen, now.Add(-5*time.Minute), now.Add(25*time.Minute))

	leadRepo := newFakeLeadRepo(l)
	bidRepo := newFakeBidRepo(leadRepo)
	service := newTestBidService(leadRepo, bidRepo, now)

	agentID := uuid.New()
	got, placed, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
		LeadID:  l.ID,
		AgentID: agentID,
		Amount:  1500,
	})

	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, agentID, placed.AgentID)
	assert.Equal(t, int64(1500), placed.Amount)
	require.NotNil(t, got.CurrentBidAmount)
	assert.Equal(t, int64(1500), *got.CurrentBidAmount)

	persisted, err := leadRepo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted.CurrentBidAmount)
	assert.Equal(t, int64(1500), *persisted.CurrentBidAmount)
}

func TestApplyBidExtendsWindowOnEveryAcceptedBid(t *testing.T) {
	// The rolling extension applies to every accepted bid while open,
	// not only bids near the deadline.
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		endAt time.Time
	}{
		{name: "bid_far_from_the_boundary", endAt: now.Add(29 * time.Minute)},
		{name: "bid_close_to_the_boundary", endAt: now.Add(5 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLead(lead.AuctionOpen, now.Add(-time.Minute), tt.endAt)
			leadRepo := newFakeLeadRepo(l)
			bidRepo := newFakeBidRepo(leadRepo)
			service := newTestBidService(leadRepo, bidRepo, now)

			got, _, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
				LeadID:  l.ID,
				AgentID: uuid.New(),
				Amount:  1500,
			})

			require.NoError(t, err)
			assert.True(t, got.AuctionEndAt.Equal(now.Add(30*time.Minute)), "end must move to bid time plus the extension")

			persisted, err := leadRepo.GetByID(context.Background(), l.ID)
			require.NoError(t, err)
			assert.True(t, persisted.AuctionEndAt.Equal(now.Add(30*time.Minute)))
		})
	}
}

func TestApplyBidRejectsInvalidAmounts(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		currentBid *int64
		amount     int64
		wantRule   shared.BidRule
		wantMin    int64
	}{
		{
			name:     "below_floor",
			amount:   1000,
			wantRule: shared.BidRuleFloor,
			wantMin:  1500,
		},
		{
			name:       "off_lattice",
			currentBid: int64Ptr(2000),
			amount:     2600,
			wantRule:   shared.BidRuleLattice,
			wantMin:    2500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLead(lead.AuctionOpen, now.Add(-5*time.Minute), now.Add(25*time.Minute))
			l.CurrentBidAmount = tt.currentBid

			leadRepo := newFakeLeadRepo(l)
			bidRepo := newFakeBidRepo(leadRepo)
			service := newTestBidService(leadRepo, bidRepo, now)

			_, _, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
				LeadID:  l.ID,
				AgentID: uuid.New(),
				Amount:  tt.amount,
			})

			var ve *shared.ValidationError
			require.True(t, errors.As(err, &ve), "expected a validation error, got %v", err)
			assert.Equal(t, tt.wantRule, ve.Rule)
			assert.Equal(t, tt.wantMin, ve.MinAcceptable)
			assert.Zero(t, bidRepo.placeBidCalled, "rejected bids never reach the store")
		})
	}
}

func TestApplyBidRejectsWhenNotOpen(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	l := testLead(lead.AuctionScheduled, now.Add(time.Hour), now.Add(time.Hour+30*time.Minute))

	leadRepo := newFakeLeadRepo(l)
	service := newTestBidService(leadRepo, newFakeBidRepo(leadRepo), now)

	_, _, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
		LeadID:  l.ID,
		AgentID: uuid.New(),
		Amount:  1500,
	})

	assert.ErrorIs(t, err, shared.ErrAuctionNotOpen)
}

func TestApplyBidFinalizesElapsedWindowFirst(t *testing.T) {
	// The lead still says open in the store, but its window elapsed;
	// the bid path finalizes it closed and rejects the bid.
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	l := testLead(lead.AuctionOpen, now.Add(-time.Hour), now.Add(-time.Minute))

	leadRepo := newFakeLeadRepo(l)
	service := newTestBidService(leadRepo, newFakeBidRepo(leadRepo), now)

	_, _, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
		LeadID:  l.ID,
		AgentID: uuid.New(),
		Amount:  1500,
	})

	assert.ErrorIs(t, err, shared.ErrAuctionNotOpen)

	persisted, err := leadRepo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.AuctionClosed, persisted.AuctionStatus)
}

func TestApplyBidRetriesOnceAfterConflict(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	l := testLead(lead.AuctionOpen, now.Add(-5*time.Minute), now.Add(25*time.Minute))

	leadRepo := newFakeLeadRepo(l)
	bidRepo := newFakeBidRepo(leadRepo)
	bidRepo.conflictsLeft = 1
	service := newTestBidService(leadRepo, bidRepo, now)

	_, placed, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
		LeadID:  l.ID,
		AgentID: uuid.New(),
		Amount:  1500,
	})

	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, 2, bidRepo.placeBidCalled)
}

func TestApplyBidSurfacesRepeatedConflict(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	l := testLead(lead.AuctionOpen, now.Add(-5*time.Minute), now.Add(25*time.Minute))

	leadRepo := newFakeLeadRepo(l)
	bidRepo := newFakeBidRepo(leadRepo)
	bidRepo.conflictsLeft = 2
	service := newTestBidService(leadRepo, bidRepo, now)

	_, _, err := service.ApplyBid(context.Background(), inbound.PlaceBidRequest{
		LeadID:  l.ID,
		AgentID: uuid.New(),
		Amount:  1500,
	})

	assert.ErrorIs(t, err, shared.ErrBidConflict)
}

func int64Ptr(v int64) *int64 {
	return &v
}
