package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// Ensure PositionRepo implements PositionRepository
var _ repositories.PositionRepository = (*PositionRepo)(nil)

// PositionRepo implements PositionRepository using PostgreSQL
type PositionRepo struct {
	db *sqlx.DB
}

// NewPositionRepo creates a new position repository
func NewPositionRepo(db *sqlx.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

// Get retrieves the position for a wallet and token, nil when absent
func (r *PositionRepo) Get(ctx context.Context, walletAddress, tokenSymbol string) (*entities.Position, error) {
	var position entities.Position
	query := `SELECT * FROM positions WHERE wallet_address = $1 AND token_symbol = $2`

	err := r.db.GetContext(ctx, &position, query, strings.ToLower(walletAddress), strings.ToUpper(tokenSymbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return &position, nil
}

// ListByWallet retrieves all positions held by a wallet
func (r *PositionRepo) ListByWallet(ctx context.Context, walletAddress string) ([]entities.Position, error) {
	var positions []entities.Position
	query := `SELECT * FROM positions WHERE wallet_address = $1 ORDER BY token_symbol`

	if err := r.db.SelectContext(ctx, &positions, query, strings.ToLower(walletAddress)); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return positions, nil
}

// CountByWallet returns the number of distinct positions for a wallet
func (r *PositionRepo) CountByWallet(ctx context.Context, walletAddress string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM positions WHERE wallet_address = $1`

	if err := r.db.GetContext(ctx, &count, query, strings.ToLower(walletAddress)); err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}

	return count, nil
}

// Upsert creates or updates the position keyed by (wallet, token).
// The unique constraint resolves concurrent writes for the same key;
// two interleaved trade applications cannot create duplicate rows.
func (r *PositionRepo) Upsert(ctx context.Context, position *entities.Position) error {
	query := `
		INSERT INTO positions (wallet_address, token_symbol, balance, avg_entry_rate, deposited_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (wallet_address, token_symbol) DO UPDATE SET
			balance = EXCLUDED.balance,
			avg_entry_rate = EXCLUDED.avg_entry_rate,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		strings.ToLower(position.WalletAddress),
		strings.ToUpper(position.TokenSymbol),
		position.Balance,
		position.AvgEntryRate,
		position.DepositedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}
