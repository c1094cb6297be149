package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"willow-auction-engine/internal/domain/bid"
	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

// GetByLeadID retrieves all bids for a lead in resolution order
func (r *BidRepository) GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT id, lead_id, agent_id, amount, placed_at
		FROM bids
		WHERE lead_id = $1
		ORDER BY amount DESC, placed_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		err := rows.Scan(
			&b.ID,
			&b.LeadID,
			&b.AgentID,
			&b.Amount,
			&b.PlacedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetHighestBid retrieves the current winning bid for a lead
func (r *BidRepository) GetHighestBid(ctx context.Context, leadID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT id, lead_id, agent_id, amount, placed_at
		FROM bids
		WHERE lead_id = $1
		ORDER BY amount DESC, placed_at ASC
		LIMIT 1
	`

	var b bid.Bid
	err := r.conn.GetDB().QueryRowContext(ctx, query, leadID).Scan(
		&b.ID,
		&b.LeadID,
		&b.AgentID,
		&b.Amount,
		&b.PlacedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return &b, nil
}

/*
PlaceBid appends an accepted bid and advances the lead row in one
transaction:
 1. Re-check that the window is still open against the bid's own instant
 2. Insert the bid
 3. Raise current_bid_amount and push auction_end_at, predicated on the
    current bid the caller observed during validation

If the predicate matches zero rows another bid landed first; the whole
transaction rolls back and shared.ErrBidConflict tells the caller to
re-validate against the refreshed record.
*/
func (r *BidRepository) PlaceBid(ctx context.Context, newBid *bid.Bid, expectedCurrent *int64, newEndAt time.Time) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		leadQuery := `
			SELECT auction_status, auction_end_at, current_bid_amount
			FROM leads
			WHERE id = $1
		`

		var status sql.NullString
		var endAt time.Time
		var currentBid *int64
		err := tx.QueryRowContext(ctx, leadQuery, newBid.LeadID).Scan(&status, &endAt, &currentBid)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrLeadNotFound
			}
			return fmt.Errorf("failed to get lead for bid placement: %w", err)
		}

		if !status.Valid || lead.AuctionStatus(status.String) != lead.AuctionOpen {
			return shared.ErrAuctionNotOpen
		}
		if !newBid.PlacedAt.Before(endAt) {
			return shared.ErrAuctionNotOpen
		}
		if !sameAmount(currentBid, expectedCurrent) {
			return shared.ErrBidConflict
		}

		bidQuery := `
			INSERT INTO bids (id, lead_id, agent_id, amount, placed_at)
			VALUES ($1, $2, $3, $4, $5)
		`

		_, err = tx.ExecContext(ctx, bidQuery,
			newBid.ID,
			newBid.LeadID,
			newBid.AgentID,
			newBid.Amount,
			newBid.PlacedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		// The predicate re-checks both the observed current bid and that
		// the auction is still open: a finalizer closing the lead between
		// the SELECT above and this write leaves current_bid_amount at the
		// same maximum, so the amount alone cannot exclude that
		// interleaving. The winner is not recorded here: winning_agent_id
		// is written only when the auction closes.
		updateQuery := `
			UPDATE leads
			SET current_bid_amount = $2, auction_end_at = $3, updated_at = $4
			WHERE id = $1
			  AND auction_status = $5
			  AND current_bid_amount IS NOT DISTINCT FROM $6
		`

		result, err := tx.ExecContext(ctx, updateQuery,
			newBid.LeadID,
			newBid.Amount,
			newEndAt,
			newBid.PlacedAt,
			lead.AuctionOpen,
			expectedCurrent,
		)
		if err != nil {
			return fmt.Errorf("failed to update lead for bid: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrBidConflict
		}

		return nil
	})
}

func sameAmount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
