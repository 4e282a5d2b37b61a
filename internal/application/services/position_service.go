package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
	"github.com/radityaw/treasury-agent/internal/infrastructure/cache"
)

// ErrUnknownToken indicates a quote request named a symbol outside the
// configured token registry
var ErrUnknownToken = errors.New("unknown token")

// PositionService serves read-only position and quote views for the
// operational API
type PositionService struct {
	positions repositories.PositionRepository
	quotes    *QuoteService
	registry  *entities.TokenRegistry
	cache     *cache.RedisCache
	logger    *zap.Logger
}

// NewPositionService creates a new position service
func NewPositionService(
	positions repositories.PositionRepository,
	quotes *QuoteService,
	registry *entities.TokenRegistry,
	redisCache *cache.RedisCache,
	logger *zap.Logger,
) *PositionService {
	return &PositionService{
		positions: positions,
		quotes:    quotes,
		registry:  registry,
		cache:     redisCache,
		logger:    logger,
	}
}

// PositionDTO is the API representation of a position
type PositionDTO struct {
	TokenSymbol  string  `json:"token_symbol"`
	Balance      float64 `json:"balance"`
	AvgEntryRate float64 `json:"avg_entry_rate"`
	CostBasisUSD float64 `json:"cost_basis_usd"`
	DepositedAt  string  `json:"deposited_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// PositionsResponse wraps a wallet's positions for the API
type PositionsResponse struct {
	WalletAddress     string        `json:"wallet_address"`
	Positions         []PositionDTO `json:"positions"`
	PortfolioValueUSD float64       `json:"portfolio_value_usd"`
	UpdatedAt         string        `json:"updated_at"`
}

// QuoteResponse wraps a computed quote for the API
type QuoteResponse struct {
	Data entities.Quote `json:"data"`
}

// GetPositions retrieves all positions held by a wallet
func (s *PositionService) GetPositions(ctx context.Context, walletAddress string) (*PositionsResponse, error) {
	walletAddress = strings.ToLower(walletAddress)
	cacheKey := fmt.Sprintf("positions:%s", walletAddress)

	var cached PositionsResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	positions, err := s.positions.ListByWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	dtos := make([]PositionDTO, len(positions))
	for i, p := range positions {
		dtos[i] = PositionDTO{
			TokenSymbol:  p.TokenSymbol,
			Balance:      p.Balance,
			AvgEntryRate: p.AvgEntryRate,
			CostBasisUSD: p.CostBasisUSD(),
			DepositedAt:  p.DepositedAt.UTC().Format(time.RFC3339),
			UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}

	response := &PositionsResponse{
		WalletAddress:     walletAddress,
		Positions:         dtos,
		PortfolioValueUSD: entities.PortfolioValueUSD(positions),
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339),
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 30*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetQuote computes a display quote between two configured tokens.
// Cached briefly; execution always re-quotes.
func (s *PositionService) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int) (*QuoteResponse, error) {
	in, ok := s.registry.BySymbol(tokenIn)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownToken, tokenIn)
	}
	out, ok := s.registry.BySymbol(tokenOut)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownToken, tokenOut)
	}

	cacheKey := fmt.Sprintf("quote:%s:%s:%s", in.Symbol, out.Symbol, amountIn.String())

	var cached QuoteResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			cached.Data.RestoreAmounts()
			return &cached, nil
		}
	}

	quote, err := s.quotes.Quote(ctx, in, out, amountIn)
	if err != nil {
		return nil, err
	}

	response := &QuoteResponse{Data: quote}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 15*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}
