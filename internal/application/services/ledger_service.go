package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// LedgerService maintains the position ledger: one row per (wallet,
// token) with the balance and weighted-average entry rate
type LedgerService struct {
	positions repositories.PositionRepository
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(positions repositories.PositionRepository, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		positions: positions,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// ApplyTrade applies one executed trade to the wallet's position. Rate
// is destination tokens per unit source currency, so 1/rate is the
// cost paid per destination token.
//
// Buys blend the new cost into the weighted-average entry rate. Sells
// reduce the balance, clamped at zero, and leave the entry rate
// untouched: realized P&L from partial sells is not smoothed back into
// the remaining position's cost basis.
func (s *LedgerService) ApplyTrade(
	ctx context.Context,
	walletAddress, tokenSymbol string,
	direction entities.TradeDirection,
	amountUSD, rate float64,
) error {
	if rate <= 0 {
		return fmt.Errorf("invalid trade rate %f", rate)
	}
	if amountUSD < 0 {
		return fmt.Errorf("invalid trade amount %f", amountUSD)
	}

	walletAddress = strings.ToLower(walletAddress)
	tokenSymbol = strings.ToUpper(tokenSymbol)

	position, err := s.positions.Get(ctx, walletAddress, tokenSymbol)
	if err != nil {
		return fmt.Errorf("failed to load position: %w", err)
	}

	now := s.nowFunc()
	if position == nil {
		position = &entities.Position{
			WalletAddress: walletAddress,
			TokenSymbol:   tokenSymbol,
			DepositedAt:   now,
		}
	}

	tokens := amountUSD * rate

	switch direction {
	case entities.TradeBuy:
		newBalance := position.Balance + tokens
		if newBalance > 0 {
			position.AvgEntryRate = (position.Balance*position.AvgEntryRate + tokens*(1/rate)) / newBalance
		} else {
			position.AvgEntryRate = 1 / rate
		}
		position.Balance = newBalance

	case entities.TradeSell:
		newBalance := position.Balance - tokens
		if newBalance < 0 {
			s.logger.Warn("Sell exceeds position balance, clamping to zero",
				zap.String("wallet", walletAddress),
				zap.String("token", tokenSymbol),
				zap.Float64("balance", position.Balance),
				zap.Float64("tokens_sold", tokens),
			)
			newBalance = 0
		}
		position.Balance = newBalance

	default:
		return fmt.Errorf("unknown trade direction %q", direction)
	}

	position.UpdatedAt = now

	if err := s.positions.Upsert(ctx, position); err != nil {
		return fmt.Errorf("failed to persist position: %w", err)
	}

	s.logger.Info("Applied trade to position ledger",
		zap.String("wallet", walletAddress),
		zap.String("token", tokenSymbol),
		zap.String("direction", string(direction)),
		zap.Float64("amount_usd", amountUSD),
		zap.Float64("rate", rate),
		zap.Float64("balance", position.Balance),
		zap.Float64("avg_entry_rate", position.AvgEntryRate),
	)

	return nil
}
