package repositories

import (
	"context"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// TimelineRepository defines the interface for the wallet activity log.
// Writes are fire-and-forget: a failure here must never roll back a
// trade that already succeeded on-chain.
type TimelineRepository interface {
	// LogEvent appends an event to a wallet's timeline
	LogEvent(ctx context.Context, walletAddress, eventType string, payload interface{}) error

	// ListByWallet retrieves recent events for a wallet, newest first
	ListByWallet(ctx context.Context, walletAddress string, limit int) ([]entities.TimelineEvent, error)
}
