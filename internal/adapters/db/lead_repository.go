package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// LeadRepository implements the lead repository interface
type LeadRepository struct {
	conn *Connection
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(conn *Connection) *LeadRepository {
	return &LeadRepository{conn: conn}
}

const leadColumns = `
	id, created_at, province, country, status, assigned_agent_id,
	auction_enabled, auction_status, auction_start_at, auction_end_at, auction_timezone,
	starting_bid, min_increment, buy_now_price,
	current_bid_amount, winning_agent_id, notification_sent_at, updated_at
`

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		l.ID,
		l.CreatedAt,
		l.Locale.Province,
		l.Locale.Country,
		l.Status,
		l.AssignedAgentID,
		l.AuctionEnabled,
		nullStatus(l.AuctionStatus),
		l.AuctionStartAt,
		l.AuctionEndAt,
		l.AuctionTimezone,
		l.StartingBid,
		l.MinIncrement,
		l.BuyNowPrice,
		l.CurrentBidAmount,
		l.WinningAgentID,
		l.NotificationSentAt,
		l.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE id = $1
	`

	row := r.conn.GetDB().QueryRowContext(ctx, query, id)
	l, err := scanLead(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return l, nil
}

// ListByAuctionStatus retrieves auction-enabled leads in the given status
func (r *LeadRepository) ListByAuctionStatus(ctx context.Context, status lead.AuctionStatus, page, pageSize int) ([]*lead.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE auction_enabled = true AND auction_status = $1
		ORDER BY auction_start_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, string(status), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}

	return leads, nil
}

// UpdateAuctionState persists a lead's auction fields in one conditional
// write keyed on the previously observed status and window end. The
// predicate is the concurrency control: when another finalizer already
// advanced the status, or a concurrent bid pushed auction_end_at past
// the instant this caller evaluated against, zero rows match and the
// caller gets shared.ErrStatusConflict instead of silently overwriting
// a newer state. Keying on the end instant as well keeps a finalizer
// holding a pre-extension window from closing the auction early and
// rolling the extension back.
func (r *LeadRepository) UpdateAuctionState(ctx context.Context, l *lead.Lead, expectedStatus lead.AuctionStatus, expectedEndAt time.Time) error {
	query := `
		UPDATE leads
		SET auction_status = $2, auction_end_at = $3, current_bid_amount = $4,
		    winning_agent_id = $5, notification_sent_at = $6, updated_at = $7
		WHERE id = $1 AND auction_status = $8 AND auction_end_at = $9
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		l.ID,
		string(l.AuctionStatus),
		l.AuctionEndAt,
		l.CurrentBidAmount,
		l.WinningAgentID,
		l.NotificationSentAt,
		l.UpdatedAt,
		string(expectedStatus),
		expectedEndAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update auction state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrStatusConflict
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(s scanner) (*lead.Lead, error) {
	var l lead.Lead
	var auctionStatus sql.NullString
	err := s.Scan(
		&l.ID,
		&l.CreatedAt,
		&l.Locale.Province,
		&l.Locale.Country,
		&l.Status,
		&l.AssignedAgentID,
		&l.AuctionEnabled,
		&auctionStatus,
		&l.AuctionStartAt,
		&l.AuctionEndAt,
		&l.AuctionTimezone,
		&l.StartingBid,
		&l.MinIncrement,
		&l.BuyNowPrice,
		&l.CurrentBidAmount,
		&l.WinningAgentID,
		&l.NotificationSentAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if auctionStatus.Valid {
		l.AuctionStatus = lead.AuctionStatus(auctionStatus.String)
	}
	return &l, nil
}

func nullStatus(status lead.AuctionStatus) sql.NullString {
	if status == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(status), Valid: true}
}
