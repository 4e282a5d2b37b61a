package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/domain/repositories"
)

// ErrInsufficientBalance indicates the wallet's operating token
// position cannot cover the proposed trade
var ErrInsufficientBalance = errors.New("insufficient balance")

// GuardrailBlockedError is returned when a signal fails guardrail
// evaluation. It is an expected, user-facing outcome carrying the
// blocking rule and its structured reason.
type GuardrailBlockedError struct {
	Rule   string
	Reason string
}

func (e *GuardrailBlockedError) Error() string {
	return fmt.Sprintf("blocked by %s: %s", e.Rule, e.Reason)
}

// CallSubmitter submits one swap plan call and waits for confirmation
type CallSubmitter interface {
	SubmitCall(ctx context.Context, call entities.SwapCall) (string, error)
}

// TradeService runs the capital-moving pipeline: guardrail evaluation,
// route and quote, plan construction, sequential hop execution, and
// the position ledger update
type TradeService struct {
	quotes    *QuoteService
	planner   *PlanBuilder
	guardrail *Guardrail
	ledger    *LedgerService
	positions repositories.PositionRepository
	timeline  repositories.TimelineRepository
	submitter CallSubmitter
	registry  *entities.TokenRegistry
	limits    entities.GuardrailConfig
	primary   entities.Token
	logger    *zap.Logger

	// Daily trade counter for the derived max_daily_trades limit.
	// Process-local by the same bounded-risk reasoning as the balance
	// cache: a restart forgets the count for the current day.
	mu         sync.Mutex
	tradeDay   string
	tradeCount int
	nowFunc    func() time.Time
}

// NewTradeService creates a new trade service
func NewTradeService(
	quotes *QuoteService,
	planner *PlanBuilder,
	guardrail *Guardrail,
	ledger *LedgerService,
	positions repositories.PositionRepository,
	timeline repositories.TimelineRepository,
	submitter CallSubmitter,
	registry *entities.TokenRegistry,
	limits entities.GuardrailConfig,
	primary entities.Token,
	logger *zap.Logger,
) *TradeService {
	return &TradeService{
		quotes:    quotes,
		planner:   planner,
		guardrail: guardrail,
		ledger:    ledger,
		positions: positions,
		timeline:  timeline,
		submitter: submitter,
		registry:  registry,
		limits:    limits,
		primary:   primary,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// ExecuteSignal validates a proposed signal and, when approved, runs
// the full trade pipeline for it
func (s *TradeService) ExecuteSignal(ctx context.Context, walletAddress string, signal entities.TradeSignal) error {
	walletAddress = strings.ToLower(walletAddress)

	positions, err := s.positions.ListByWallet(ctx, walletAddress)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}
	portfolioValue := entities.PortfolioValueUSD(positions)

	result := s.guardrail.Evaluate(signal, s.limits, positions, portfolioValue)
	// Hold is a no-op and never counts against the daily trade limit
	if result.Passed && signal.Action != entities.ActionHold {
		result = s.guardrail.CheckTradeCount(s.limits, s.tradesToday())
	}
	if !result.Passed {
		guardrailBlockedTotal.WithLabelValues(result.RuleName).Inc()
		s.logEvent(ctx, walletAddress, entities.EventGuardrailBlocked, result)
		return &GuardrailBlockedError{Rule: result.RuleName, Reason: result.Reason}
	}

	switch signal.Action {
	case entities.ActionHold:
		return nil
	case entities.ActionDeposit:
		return s.executeDeposit(ctx, walletAddress, signal, positions)
	case entities.ActionWithdraw:
		return s.executeWithdraw(ctx, walletAddress, signal)
	default:
		return fmt.Errorf("unknown signal action %q", signal.Action)
	}
}

// executeDeposit swaps the operating token into the destination token
func (s *TradeService) executeDeposit(ctx context.Context, walletAddress string, signal entities.TradeSignal, positions []entities.Position) error {
	destination, ok := s.registry.BySymbol(signal.Destination)
	if !ok {
		return fmt.Errorf("unknown destination token %q", signal.Destination)
	}

	// Only enforceable when the operating position is tracked; an
	// unrecorded position defers to the on-chain balance at execution
	for _, p := range positions {
		if strings.EqualFold(p.TokenSymbol, s.primary.Symbol) && p.CostBasisUSD() < signal.AmountUSD {
			return fmt.Errorf("wallet %s holds $%.2f %s, needs $%.2f: %w",
				walletAddress, p.CostBasisUSD(), s.primary.Symbol, signal.AmountUSD, ErrInsufficientBalance)
		}
	}

	amountIn := entities.ParseUnits(signal.AmountUSD, s.primary.Decimals)
	quote, err := s.quotes.Quote(ctx, s.primary, destination, amountIn)
	if err != nil {
		return err
	}

	if err := s.executePlan(ctx, walletAddress, quote); err != nil {
		return err
	}

	if err := s.ledger.ApplyTrade(ctx, walletAddress, destination.Symbol, entities.TradeBuy, signal.AmountUSD, quote.Rate); err != nil {
		return fmt.Errorf("trade executed but ledger update failed: %w", err)
	}

	tradesExecutedTotal.WithLabelValues(string(entities.TradeBuy)).Inc()
	s.recordTrade()
	s.logEvent(ctx, walletAddress, entities.EventTradeExecuted, map[string]interface{}{
		"action":      signal.Action,
		"destination": destination.Symbol,
		"amount_usd":  signal.AmountUSD,
		"rate":        quote.Rate,
	})

	return nil
}

// executeWithdraw swaps the destination token back into the operating
// token. The input is sized at one token per dollar; these are
// stablecoin-like tokens and the slippage bound guards the actual
// output.
func (s *TradeService) executeWithdraw(ctx context.Context, walletAddress string, signal entities.TradeSignal) error {
	source, ok := s.registry.BySymbol(signal.Destination)
	if !ok {
		return fmt.Errorf("unknown destination token %q", signal.Destination)
	}

	position, err := s.positions.Get(ctx, walletAddress, source.Symbol)
	if err != nil {
		return fmt.Errorf("failed to load position: %w", err)
	}
	if position == nil || position.Balance < signal.AmountUSD {
		return fmt.Errorf("wallet %s has no sufficient %s position: %w",
			walletAddress, source.Symbol, ErrInsufficientBalance)
	}

	amountIn := entities.ParseUnits(signal.AmountUSD, source.Decimals)
	quote, err := s.quotes.Quote(ctx, source, s.primary, amountIn)
	if err != nil {
		return err
	}

	if err := s.executePlan(ctx, walletAddress, quote); err != nil {
		return err
	}

	if err := s.ledger.ApplyTrade(ctx, walletAddress, source.Symbol, entities.TradeSell, signal.AmountUSD, 1); err != nil {
		return fmt.Errorf("trade executed but ledger update failed: %w", err)
	}

	tradesExecutedTotal.WithLabelValues(string(entities.TradeSell)).Inc()
	s.recordTrade()
	s.logEvent(ctx, walletAddress, entities.EventTradeExecuted, map[string]interface{}{
		"action":      signal.Action,
		"destination": source.Symbol,
		"amount_usd":  signal.AmountUSD,
		"rate":        quote.Rate,
	})

	return nil
}

// ConvertDeposit swaps a detected convertible deposit into the primary
// operating token and credits the resulting position
func (s *TradeService) ConvertDeposit(ctx context.Context, walletAddress string, token entities.Token, amount *big.Int) error {
	quote, err := s.quotes.Quote(ctx, token, s.primary, amount)
	if err != nil {
		return err
	}

	if err := s.executePlan(ctx, walletAddress, quote); err != nil {
		return err
	}

	amountUSD := s.primary.FormatAmount(quote.AmountOut)
	if err := s.ledger.ApplyTrade(ctx, walletAddress, s.primary.Symbol, entities.TradeBuy, amountUSD, 1); err != nil {
		return fmt.Errorf("conversion executed but ledger update failed: %w", err)
	}

	tradesExecutedTotal.WithLabelValues(string(entities.TradeBuy)).Inc()
	s.logEvent(ctx, walletAddress, entities.EventTradeExecuted, map[string]interface{}{
		"action":     "convert",
		"token_in":   token.Symbol,
		"token_out":  s.primary.Symbol,
		"amount_usd": amountUSD,
	})

	return nil
}

// executePlan submits the plan's calls strictly in order, stopping on
// the first failed hop
func (s *TradeService) executePlan(ctx context.Context, walletAddress string, quote entities.Quote) error {
	plan, err := s.planner.BuildPlanFromQuote(quote)
	if err != nil {
		return fmt.Errorf("failed to build swap plan: %w", err)
	}

	for i, call := range plan.Calls {
		txHash, err := s.submitter.SubmitCall(ctx, call)
		if err != nil {
			return fmt.Errorf("swap hop %d of %d failed: %w", i+1, len(plan.Calls), err)
		}

		s.logger.Info("Executed swap hop",
			zap.String("wallet", walletAddress),
			zap.Int("hop", i+1),
			zap.Int("hops", len(plan.Calls)),
			zap.String("tx_hash", txHash),
		)
	}

	return nil
}

// logEvent appends a timeline event, warning on failure. Timeline
// writes never roll back a trade that already succeeded on-chain.
func (s *TradeService) logEvent(ctx context.Context, walletAddress, eventType string, payload interface{}) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.LogEvent(ctx, walletAddress, eventType, payload); err != nil {
		s.logger.Warn("Failed to log timeline event",
			zap.String("wallet", walletAddress),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (s *TradeService) tradesToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.nowFunc().UTC().Format("2006-01-02")
	if day != s.tradeDay {
		return 0
	}
	return s.tradeCount
}

func (s *TradeService) recordTrade() {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.nowFunc().UTC().Format("2006-01-02")
	if day != s.tradeDay {
		s.tradeDay = day
		s.tradeCount = 0
	}
	s.tradeCount++
}
