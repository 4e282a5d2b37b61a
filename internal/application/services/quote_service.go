package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// AmountOutReader performs the router's read-only per-hop quote call
type AmountOutReader interface {
	GetAmountOut(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error)
}

// QuoteService computes end-to-end quotes by chaining per-hop
// amount-out calls along a resolved route
type QuoteService struct {
	resolver *RouteResolver
	router   AmountOutReader
	logger   *zap.Logger
}

// NewQuoteService creates a new quote service
func NewQuoteService(resolver *RouteResolver, router AmountOutReader, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		resolver: resolver,
		router:   router,
		logger:   logger,
	}
}

// Quote resolves a route and walks its hops, feeding each hop's output
// into the next hop's input. A missing route surfaces as ErrNoRoute;
// an RPC failure is wrapped as a separate infrastructure error.
func (s *QuoteService) Quote(ctx context.Context, tokenIn, tokenOut entities.Token, amountIn *big.Int) (entities.Quote, error) {
	route, err := s.resolver.Resolve(ctx, tokenIn.Address, tokenOut.Address)
	if err != nil {
		if errors.Is(err, ErrNoRoute) {
			return entities.Quote{}, fmt.Errorf("%s to %s: %w", tokenIn.Symbol, tokenOut.Symbol, ErrNoRoute)
		}
		return entities.Quote{}, fmt.Errorf("quote unavailable: %w", err)
	}

	running := new(big.Int).Set(amountIn)
	for _, hop := range route.Hops {
		out, err := s.router.GetAmountOut(ctx, hop.PoolID, hop.TokenIn, running)
		if err != nil {
			return entities.Quote{}, fmt.Errorf("quote unavailable for pool %s: %w", hop.PoolID, err)
		}
		running = out
	}

	quote := entities.NewQuote(tokenIn, tokenOut, amountIn, running, route)

	s.logger.Debug("Computed quote",
		zap.String("token_in", tokenIn.Symbol),
		zap.String("token_out", tokenOut.Symbol),
		zap.String("amount_in", quote.AmountInRaw),
		zap.String("amount_out", quote.AmountOutRaw),
		zap.Float64("rate", quote.Rate),
		zap.Int("hops", len(route.Hops)),
	)

	return quote, nil
}
