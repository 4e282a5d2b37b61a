package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// Ensure TimelineRepo implements TimelineRepository
var _ repositories.TimelineRepository = (*TimelineRepo)(nil)

// TimelineRepo implements TimelineRepository using PostgreSQL
type TimelineRepo struct {
	db *sqlx.DB
}

// NewTimelineRepo creates a new timeline repository
func NewTimelineRepo(db *sqlx.DB) *TimelineRepo {
	return &TimelineRepo{db: db}
}

// LogEvent appends an event to a wallet's timeline
func (r *TimelineRepo) LogEvent(ctx context.Context, walletAddress, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO timeline_events (wallet_address, event_type, payload)
		VALUES ($1, $2, $3)
	`

	_, err = r.db.ExecContext(ctx, query, strings.ToLower(walletAddress), eventType, data)
	if err != nil {
		return fmt.Errorf("failed to log timeline event: %w", err)
	}

	return nil
}

// ListByWallet retrieves recent events for a wallet, newest first
func (r *TimelineRepo) ListByWallet(ctx context.Context, walletAddress string, limit int) ([]entities.TimelineEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var events []entities.TimelineEvent
	query := `
		SELECT * FROM timeline_events
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &events, query, strings.ToLower(walletAddress), limit); err != nil {
		return nil, fmt.Errorf("failed to list timeline events: %w", err)
	}

	return events, nil
}
