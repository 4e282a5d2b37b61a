package repositories

import (
	"context"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// PositionRepository defines the interface for position ledger operations
type PositionRepository interface {
	// Get retrieves the position for a wallet and token, nil when absent
	Get(ctx context.Context, walletAddress, tokenSymbol string) (*entities.Position, error)

	// ListByWallet retrieves all positions held by a wallet
	ListByWallet(ctx context.Context, walletAddress string) ([]entities.Position, error)

	// CountByWallet returns the number of distinct positions for a wallet
	CountByWallet(ctx context.Context, walletAddress string) (int64, error)

	// Upsert creates or updates the position keyed by (wallet, token).
	// The conflict key resolves concurrent writes; callers never
	// insert-then-update.
	Upsert(ctx context.Context, position *entities.Position) error
}
