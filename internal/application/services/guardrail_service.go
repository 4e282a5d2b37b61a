package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// Guardrail rule names, stable identifiers consumed by logging and UI
const (
	RuleMinAprThreshold = "min_apr_threshold"
	RuleMaxSingleVault  = "max_single_vault"
	RuleMaxVaultCount   = "max_vault_count"
	RuleMinHoldPeriod   = "min_hold_period"
	RuleMaxTradeSize    = "max_trade_size"
	RuleMaxDailyTrades  = "max_daily_trades"
)

// Guardrail validates proposed signals against a wallet's limits.
// Evaluation performs no I/O and is deterministic given its inputs and
// the injected clock; each call is independent given the snapshot of
// positions and portfolio value passed in.
type Guardrail struct {
	nowFunc func() time.Time
}

// NewGuardrail creates a guardrail engine
func NewGuardrail() *Guardrail {
	return &Guardrail{nowFunc: time.Now}
}

// Evaluate checks a signal against the wallet's limits. Rules run in a
// fixed precedence order and the first failing rule wins.
func (g *Guardrail) Evaluate(
	signal entities.TradeSignal,
	cfg entities.GuardrailConfig,
	positions []entities.Position,
	portfolioValueUSD float64,
) entities.GuardrailResult {
	switch signal.Action {
	case entities.ActionDeposit:
		return g.evaluateDeposit(signal, cfg, positions, portfolioValueUSD)
	case entities.ActionWithdraw:
		return g.evaluateWithdraw(signal, cfg, positions)
	case entities.ActionHold:
		// Hold is a no-op and is never blocked, regardless of how
		// strict the configured limits are
		return entities.GuardrailResult{Passed: true}
	default:
		return entities.GuardrailResult{Passed: true}
	}
}

func (g *Guardrail) evaluateDeposit(
	signal entities.TradeSignal,
	cfg entities.GuardrailConfig,
	positions []entities.Position,
	portfolioValueUSD float64,
) entities.GuardrailResult {
	if signal.EstimatedAPR < cfg.MinAprThreshold {
		return entities.GuardrailResult{
			Passed:   false,
			RuleName: RuleMinAprThreshold,
			Reason: fmt.Sprintf("APR %.1f%% is below minimum %g%%",
				signal.EstimatedAPR, cfg.MinAprThreshold),
		}
	}

	// A first deposit into an empty portfolio cannot violate a
	// concentration limit
	if portfolioValueUSD > 0 && cfg.MaxSingleVaultPct > 0 {
		existing := destinationValueUSD(positions, signal.Destination)
		concentration := (existing + signal.AmountUSD) / portfolioValueUSD * 100

		if concentration > cfg.MaxSingleVaultPct {
			return entities.GuardrailResult{
				Passed:   false,
				RuleName: RuleMaxSingleVault,
				Reason: fmt.Sprintf("position would be %.1f%% of portfolio, above maximum %g%%",
					concentration, cfg.MaxSingleVaultPct),
			}
		}
	}

	// Depositing into an existing destination is always allowed
	// regardless of count
	if cfg.MaxVaultCount > 0 && !hasPosition(positions, signal.Destination) {
		if len(positions) >= cfg.MaxVaultCount {
			return entities.GuardrailResult{
				Passed:   false,
				RuleName: RuleMaxVaultCount,
				Reason: fmt.Sprintf("already holding %d positions, maximum is %d",
					len(positions), cfg.MaxVaultCount),
			}
		}
	}

	if cfg.MaxTradeSizeUSD > 0 && signal.AmountUSD > cfg.MaxTradeSizeUSD {
		return entities.GuardrailResult{
			Passed:   false,
			RuleName: RuleMaxTradeSize,
			Reason: fmt.Sprintf("trade size $%.2f is above maximum $%g",
				signal.AmountUSD, cfg.MaxTradeSizeUSD),
		}
	}

	return entities.GuardrailResult{Passed: true}
}

func (g *Guardrail) evaluateWithdraw(
	signal entities.TradeSignal,
	cfg entities.GuardrailConfig,
	positions []entities.Position,
) entities.GuardrailResult {
	position := findPosition(positions, signal.Destination)
	if position == nil {
		// Nothing to protect
		return entities.GuardrailResult{Passed: true}
	}

	elapsedDays := g.nowFunc().Sub(position.DepositedAt).Hours() / 24
	// Exactly-equal elapsed time passes; the boundary is inclusive
	if elapsedDays < cfg.MinHoldPeriodDays {
		return entities.GuardrailResult{
			Passed:   false,
			RuleName: RuleMinHoldPeriod,
			Reason: fmt.Sprintf("position held %.1f days, minimum hold period is %g days",
				elapsedDays, cfg.MinHoldPeriodDays),
		}
	}

	return entities.GuardrailResult{Passed: true}
}

// CheckTradeCount enforces the derived daily trade limit. It takes the
// day's executed trade count separately so Evaluate stays a pure
// function of the position snapshot.
func (g *Guardrail) CheckTradeCount(cfg entities.GuardrailConfig, tradesToday int) entities.GuardrailResult {
	if cfg.MaxDailyTrades > 0 && tradesToday >= cfg.MaxDailyTrades {
		return entities.GuardrailResult{
			Passed:   false,
			RuleName: RuleMaxDailyTrades,
			Reason: fmt.Sprintf("%d trades executed today, maximum is %d",
				tradesToday, cfg.MaxDailyTrades),
		}
	}
	return entities.GuardrailResult{Passed: true}
}

func destinationValueUSD(positions []entities.Position, destination string) float64 {
	var total float64
	for _, p := range positions {
		if strings.EqualFold(p.TokenSymbol, destination) {
			total += p.CostBasisUSD()
		}
	}
	return total
}

func hasPosition(positions []entities.Position, destination string) bool {
	return findPosition(positions, destination) != nil
}

func findPosition(positions []entities.Position, destination string) *entities.Position {
	for i := range positions {
		if strings.EqualFold(positions[i].TokenSymbol, destination) {
			return &positions[i]
		}
	}
	return nil
}
