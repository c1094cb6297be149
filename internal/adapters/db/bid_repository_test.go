package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const placeBidLeadSelect = `SELECT auction_status, auction_end_at, current_bid_amount FROM leads WHERE id = $1`

const placeBidInsert = `INSERT INTO bids (id, lead_id, agent_id, amount, placed_at) VALUES ($1, $2, $3, $4, $5)`

// The UPDATE predicate must re-check that the auction is still open, not
// only that the current bid is unchanged: a close that commits between
// the SELECT and this write leaves current_bid_amount at the same
// maximum, so the amount alone cannot exclude it.
const placeBidLeadUpdate = `UPDATE leads SET current_bid_amount = $2, auction_end_at = $3, updated_at = $4 WHERE id = $1 AND auction_status = $5 AND current_bid_amount IS NOT DISTINCT FROM $6`

func setupMockDB(t *testing.T) (*Connection, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn := &Connection{db: mockDB}
	return conn, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	}
}

func testPlacedBid(placedAt time.Time) *bid.Bid {
	return &bid.Bid{
		ID:       uuid.New(),
		LeadID:   uuid.New(),
		AgentID:  uuid.New(),
		Amount:   2500,
		PlacedAt: placedAt,
	}
}

func TestPlaceBid(t *testing.T) {
	conn, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	endAt := now.Add(10 * time.Minute)
	newEndAt := now.Add(30 * time.Minute)
	newBid := testPlacedBid(now)
	expectedCurrent := int64(2000)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(placeBidLeadSelect)).
		WithArgs(newBid.LeadID).
		WillReturnRows(sqlmock.NewRows([]string{"auction_status", "auction_end_at", "current_bid_amount"}).
			AddRow("open", endAt, expectedCurrent))
	mock.ExpectExec(regexp.QuoteMeta(placeBidInsert)).
		WithArgs(newBid.ID, newBid.LeadID, newBid.AgentID, newBid.Amount, newBid.PlacedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(placeBidLeadUpdate)).
		WithArgs(newBid.LeadID, newBid.Amount, newEndAt, newBid.PlacedAt, string(lead.AuctionOpen), expectedCurrent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewBidRepository(conn)
	err := repo.PlaceBid(context.Background(), newBid, &expectedCurrent, newEndAt)

	assert.NoError(t, err)
}

func TestPlaceBidConflictWhenLeadClosesConcurrently(t *testing.T) {
	// The SELECT observed an open auction, but a finalizer committed the
	// close before the conditional UPDATE ran. The status predicate
	// matches zero rows and the whole transaction rolls back, so no bid
	// lands on a closed lead.
	conn, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	endAt := now.Add(10 * time.Minute)
	newEndAt := now.Add(30 * time.Minute)
	newBid := testPlacedBid(now)
	expectedCurrent := int64(2000)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(placeBidLeadSelect)).
		WithArgs(newBid.LeadID).
		WillReturnRows(sqlmock.NewRows([]string{"auction_status", "auction_end_at", "current_bid_amount"}).
			AddRow("open", endAt, expectedCurrent))
	mock.ExpectExec(regexp.QuoteMeta(placeBidInsert)).
		WithArgs(newBid.ID, newBid.LeadID, newBid.AgentID, newBid.Amount, newBid.PlacedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(placeBidLeadUpdate)).
		WithArgs(newBid.LeadID, newBid.Amount, newEndAt, newBid.PlacedAt, string(lead.AuctionOpen), expectedCurrent).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewBidRepository(conn)
	err := repo.PlaceBid(context.Background(), newBid, &expectedCurrent, newEndAt)

	assert.ErrorIs(t, err, shared.ErrBidConflict)
}

func TestPlaceBidRejectsClosedLead(t *testing.T) {
	conn, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	newBid := testPlacedBid(now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(placeBidLeadSelect)).
		WithArgs(newBid.LeadID).
		WillReturnRows(sqlmock.NewRows([]string{"auction_status", "auction_end_at", "current_bid_amount"}).
			AddRow("closed", now.Add(-time.Hour), int64(2000)))
	mock.ExpectRollback()

	repo := NewBidRepository(conn)
	current := int64(2000)
	err := repo.PlaceBid(context.Background(), newBid, &current, now.Add(30*time.Minute))

	assert.ErrorIs(t, err, shared.ErrAuctionNotOpen)
}
