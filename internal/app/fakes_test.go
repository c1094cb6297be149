package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// fakeLeadRepo is an in-memory lead store with the same conditional
// write semantics as the postgres adapter: UpdateAuctionState commits
// only when the stored status and window end still match the caller's
// expectation.
type fakeLeadRepo struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]*lead.Lead
	failReads  bool
	failWrites bool
}

func newFakeLeadRepo(leads ...*lead.Lead) *fakeLeadRepo {
	repo := &fakeLeadRepo{leads: make(map[uuid.UUID]*lead.Lead)}
	for _, l := range leads {
		clone := *l
		repo.leads[l.ID] = &clone
	}
	return repo
}

func (r *fakeLeadRepo) Create(ctx context.Context, l *lead.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return errStoreDown
	}
	clone := *l
	r.leads[l.ID] = &clone
	return nil
}

func (r *fakeLeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failReads {
		return nil, errStoreDown
	}
	l, ok := r.leads[id]
	if !ok {
		return nil, shared.ErrLeadNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *fakeLeadRepo) ListByAuctionStatus(ctx context.Context, status lead.AuctionStatus, page, pageSize int) ([]*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failReads {
		return nil, errStoreDown
	}
	var result []*lead.Lead
	for _, l := range r.leads {
		if l.AuctionEnabled && l.AuctionStatus == status {
			clone := *l
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeLeadRepo) UpdateAuctionState(ctx context.Context, l *lead.Lead, expectedStatus lead.AuctionStatus, expectedEndAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return errStoreDown
	}
	stored, ok := r.leads[l.ID]
	if !ok || stored.AuctionStatus != expectedStatus || !stored.AuctionEndAt.Equal(expectedEndAt) {
		return shared.ErrStatusConflict
	}
	clone := *l
	r.leads[l.ID] = &clone
	return nil
}

// fakeBidRepo mirrors the transactional PlaceBid of the postgres
// adapter against the fake lead store.
type fakeBidRepo struct {
	mu             sync.Mutex
	bids           map[uuid.UUID][]*bid.Bid
	leadRepo       *fakeLeadRepo
	failReads      bool
	conflictsLeft  int
	placeBidCalled int
}

func newFakeBidRepo(leadRepo *fakeLeadRepo) *fakeBidRepo {
	return &fakeBidRepo{
		bids:     make(map[uuid.UUID][]*bid.Bid),
		leadRepo: leadRepo,
	}
}

func (r *fakeBidRepo) seed(b *bid.Bid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids[b.LeadID] = append(r.bids[b.LeadID], b)
}

func (r *fakeBidRepo) GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failReads {
		return nil, errStoreDown
	}
	return append([]*bid.Bid(nil), r.bids[leadID]...), nil
}

func (r *fakeBidRepo) GetHighestBid(ctx context.Context, leadID uuid.UUID) (*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *bid.Bid
	for _, b := range r.bids[leadID] {
		if b.Outbids(best) {
			best = b
		}
	}
	if best == nil {
		return nil, shared.ErrNoBidsFound
	}
	return best, nil
}

func (r *fakeBidRepo) PlaceBid(ctx context.Context, b *bid.Bid, expectedCurrent *int64, newEndAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.placeBidCalled++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return shared.ErrBidConflict
	}

	r.leadRepo.mu.Lock()
	defer r.leadRepo.mu.Unlock()

	stored, ok := r.leadRepo.leads[b.LeadID]
	if !ok {
		return shared.ErrLeadNotFound
	}
	if stored.AuctionStatus != lead.AuctionOpen || !b.PlacedAt.Before(stored.AuctionEndAt) {
		return shared.ErrAuctionNotOpen
	}
	if !sameAmount(stored.CurrentBidAmount, expectedCurrent) {
		return shared.ErrBidConflict
	}

	r.bids[b.LeadID] = append(r.bids[b.LeadID], b)
	amount := b.Amount
	stored.CurrentBidAmount = &amount
	stored.AuctionEndAt = newEndAt
	stored.UpdatedAt = b.PlacedAt
	return nil
}

func sameAmount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// fakeNotifier counts opened alerts
type fakeNotifier struct {
	calls int32
	fail  bool
}

func (n *fakeNotifier) NotifyAuctionOpened(ctx context.Context, l *lead.Lead) error {
	atomic.AddInt32(&n.calls, 1)
	if n.fail {
		return shared.ErrNotifyFailed
	}
	return nil
}

func (n *fakeNotifier) count() int32 {
	return atomic.LoadInt32(&n.calls)
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
