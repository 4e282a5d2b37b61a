package services

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radityaw/treasury-agent/internal/config"
	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// BalanceReader reads a wallet's raw on-chain balance of a token
type BalanceReader interface {
	BalanceOf(ctx context.Context, tokenAddress, walletAddress string) (*big.Int, error)
}

// Converter swaps a detected deposit into the agent's primary
// operating token through the trade pipeline
type Converter interface {
	ConvertDeposit(ctx context.Context, walletAddress string, token entities.Token, amount *big.Int) error
}

// BalanceCache holds the last-observed raw balance per (wallet, token).
// It lives only in process memory; after a restart the first poll
// re-establishes baselines instead of emitting a false funding event
// equal to the entire balance.
type BalanceCache struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

// NewBalanceCache creates an empty balance cache
func NewBalanceCache() *BalanceCache {
	return &BalanceCache{balances: make(map[string]*big.Int)}
}

// Observe records a balance observation and returns the positive delta
// since the previous observation. The first observation for a key only
// establishes a baseline; equal or lower balances update silently.
func (c *BalanceCache) Observe(walletAddress, tokenAddress string, balance *big.Int) *big.Int {
	key := strings.ToLower(walletAddress) + ":" + strings.ToLower(tokenAddress)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, seen := c.balances[key]
	c.balances[key] = new(big.Int).Set(balance)

	if !seen || balance.Cmp(prev) <= 0 {
		return nil
	}
	return new(big.Int).Sub(balance, prev)
}

// MonitorService polls monitored wallets for balance increases and
// emits funding events. Convertible deposits trigger an automatic
// conversion into the primary operating token.
type MonitorService struct {
	reader    BalanceReader
	registry  *entities.TokenRegistry
	timeline  repositories.TimelineRepository
	converter Converter
	cache     *BalanceCache
	config    config.MonitorConfig
	logger    *zap.Logger
	nowFunc   func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitorService creates a new funding monitor
func NewMonitorService(
	reader BalanceReader,
	registry *entities.TokenRegistry,
	timeline repositories.TimelineRepository,
	converter Converter,
	cfg config.MonitorConfig,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		reader:    reader,
		registry:  registry,
		timeline:  timeline,
		converter: converter,
		cache:     NewBalanceCache(),
		config:    cfg,
		logger:    logger,
		nowFunc:   time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the polling loop
func (s *MonitorService) Start(ctx context.Context) {
	s.logger.Info("Starting funding monitor",
		zap.Strings("wallets", s.config.Wallets),
		zap.Duration("interval", s.config.PollInterval),
	)

	s.wg.Add(1)
	go s.runPollLoop(ctx)
}

// Stop gracefully stops the monitor
func (s *MonitorService) Stop() {
	s.logger.Info("Stopping funding monitor")
	close(s.stopCh)
	s.wg.Wait()
}

func (s *MonitorService) runPollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start to establish baselines
	s.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// PollOnce checks every monitored wallet and token once. A failure
// reading one token's balance never aborts the checks for other tokens
// or wallets.
func (s *MonitorService) PollOnce(ctx context.Context) {
	g, gCtx := errgroup.WithContext(ctx)
	if s.config.WorkerCount > 0 {
		g.SetLimit(s.config.WorkerCount)
	}

	for _, wallet := range s.config.Wallets {
		wallet := strings.ToLower(wallet)
		g.Go(func() error {
			s.pollWallet(gCtx, wallet)
			return nil
		})
	}

	// Per-token failures are swallowed inside pollWallet
	_ = g.Wait()
	pollCyclesTotal.Inc()
}

// pollWallet checks each monitored token for one wallet, isolating
// failures per token-check
func (s *MonitorService) pollWallet(ctx context.Context, walletAddress string) {
	for _, token := range s.registry.All() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.checkToken(ctx, walletAddress, token); err != nil {
			balanceCheckErrorsTotal.WithLabelValues(token.Symbol).Inc()
			s.logger.Warn("Balance check failed",
				zap.String("wallet", walletAddress),
				zap.String("token", token.Symbol),
				zap.Error(err),
			)
		}
	}
}

func (s *MonitorService) checkToken(ctx context.Context, walletAddress string, token entities.Token) error {
	balance, err := s.reader.BalanceOf(ctx, token.Address, walletAddress)
	if err != nil {
		return err
	}

	delta := s.cache.Observe(walletAddress, token.Address, balance)
	if delta == nil {
		return nil
	}

	event := entities.FundingEvent{
		WalletAddress: walletAddress,
		Token:         token,
		RawAmount:     delta,
		RawAmountStr:  delta.String(),
		Amount:        token.FormatAmount(delta),
		ObservedAt:    s.nowFunc(),
	}

	fundingEventsTotal.WithLabelValues(token.Symbol).Inc()
	s.logger.Info("Detected funding event",
		zap.String("wallet", walletAddress),
		zap.String("token", token.Symbol),
		zap.String("raw_amount", event.RawAmountStr),
		zap.Float64("amount", event.Amount),
	)

	if err := s.timeline.LogEvent(ctx, walletAddress, entities.EventFundingDetected, event); err != nil {
		s.logger.Warn("Failed to record funding event",
			zap.String("wallet", walletAddress),
			zap.Error(err),
		)
	}

	// The funding event stands on its own; a failed conversion is
	// recorded alongside it, never instead of it
	if token.Convertible && s.converter != nil {
		if err := s.converter.ConvertDeposit(ctx, walletAddress, token, delta); err != nil {
			conversionFailuresTotal.Inc()
			s.logger.Error("Auto-conversion of deposit failed",
				zap.String("wallet", walletAddress),
				zap.String("token", token.Symbol),
				zap.Error(err),
			)

			if logErr := s.timeline.LogEvent(ctx, walletAddress, entities.EventConversionFailed, map[string]interface{}{
				"token":      token.Symbol,
				"raw_amount": delta.String(),
				"error":      err.Error(),
			}); logErr != nil {
				s.logger.Warn("Failed to record conversion failure", zap.Error(logErr))
			}
		}
	}

	return nil
}
