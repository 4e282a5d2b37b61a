package services

import (
	"strings"
	"testing"
	"time"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/testutil"
)

func TestGuardrail_Deposit_AprBelowThreshold(t *testing.T) {
	guardrail := NewGuardrail()
	signal := testutil.CreateTestSignal(testutil.SignalWithAPR(3))

	result := guardrail.Evaluate(signal, testutil.DefaultGuardrailConfig(), nil, 0)

	if result.Passed {
		t.Fatal("expected signal to be blocked")
	}
	if result.RuleName != RuleMinAprThreshold {
		t.Errorf("expected rule %s, got %s", RuleMinAprThreshold, result.RuleName)
	}
	if !strings.Contains(result.Reason, "3.0") || !strings.Contains(result.Reason, "5") {
		t.Errorf("expected reason to name both rates, got %q", result.Reason)
	}
}

func TestGuardrail_Deposit_AprAtThresholdPasses(t *testing.T) {
	guardrail := NewGuardrail()
	signal := testutil.CreateTestSignal(testutil.SignalWithAPR(5))

	result := guardrail.Evaluate(signal, testutil.DefaultGuardrailConfig(), nil, 0)

	if !result.Passed {
		t.Errorf("expected APR at threshold to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_Deposit_ConcentrationBoundary(t *testing.T) {
	guardrail := NewGuardrail()
	cfg := testutil.DefaultGuardrailConfig()

	// DAI already holds $400 of a $1000 portfolio; the 50% cap allows
	// exactly $100 more
	positions := []entities.Position{
		testutil.CreateTestPosition(testutil.PositionWithToken("DAI"), testutil.PositionWithBalance(400)),
		testutil.CreateTestPosition(testutil.PositionWithToken("USDC"), testutil.PositionWithBalance(600)),
	}

	atLimit := testutil.CreateTestSignal(testutil.SignalWithAmount(100))
	result := guardrail.Evaluate(atLimit, cfg, positions, 1000)
	if !result.Passed {
		t.Errorf("expected deposit at exactly the cap to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}

	overLimit := testutil.CreateTestSignal(testutil.SignalWithAmount(101))
	result = guardrail.Evaluate(overLimit, cfg, positions, 1000)
	if result.Passed {
		t.Fatal("expected deposit above the cap to be blocked")
	}
	if result.RuleName != RuleMaxSingleVault {
		t.Errorf("expected rule %s, got %s", RuleMaxSingleVault, result.RuleName)
	}
}

func TestGuardrail_Deposit_EmptyPortfolioSkipsConcentration(t *testing.T) {
	guardrail := NewGuardrail()

	// The first deposit is 100% of the portfolio by definition
	signal := testutil.CreateTestSignal(testutil.SignalWithAmount(500))
	result := guardrail.Evaluate(signal, testutil.DefaultGuardrailConfig(), nil, 0)

	if !result.Passed {
		t.Errorf("expected first deposit to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_Deposit_VaultCount(t *testing.T) {
	guardrail := NewGuardrail()
	cfg := testutil.DefaultGuardrailConfig()

	symbols := []string{"DAI", "USDT", "WETH", "FRAX", "LUSD"}
	positions := make([]entities.Position, 0, len(symbols))
	for _, symbol := range symbols {
		positions = append(positions, testutil.CreateTestPosition(
			testutil.PositionWithToken(symbol),
			testutil.PositionWithBalance(10000),
		))
	}

	newDestination := testutil.CreateTestSignal(testutil.SignalWithDestination("GUSD"), testutil.SignalWithAmount(100))
	result := guardrail.Evaluate(newDestination, cfg, positions, 50000)
	if result.Passed {
		t.Fatal("expected new destination at the vault cap to be blocked")
	}
	if result.RuleName != RuleMaxVaultCount {
		t.Errorf("expected rule %s, got %s", RuleMaxVaultCount, result.RuleName)
	}

	// Topping up an existing destination never opens a new vault
	existingDestination := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(100))
	result = guardrail.Evaluate(existingDestination, cfg, positions, 50000)
	if !result.Passed {
		t.Errorf("expected existing destination to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_Deposit_MaxTradeSize(t *testing.T) {
	guardrail := NewGuardrail()

	signal := testutil.CreateTestSignal(testutil.SignalWithAmount(10001))
	result := guardrail.Evaluate(signal, testutil.DefaultGuardrailConfig(), nil, 0)

	if result.Passed {
		t.Fatal("expected oversized trade to be blocked")
	}
	if result.RuleName != RuleMaxTradeSize {
		t.Errorf("expected rule %s, got %s", RuleMaxTradeSize, result.RuleName)
	}
}

func TestGuardrail_Withdraw_HoldPeriodBoundary(t *testing.T) {
	guardrail := NewGuardrail()
	cfg := testutil.DefaultGuardrailConfig()

	depositedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	positions := []entities.Position{
		testutil.CreateTestPosition(testutil.PositionWithDepositedAt(depositedAt)),
	}
	signal := testutil.CreateTestSignal(
		testutil.SignalWithAction(entities.ActionWithdraw),
		testutil.SignalWithAmount(50),
	)

	// One second short of the 7-day minimum
	guardrail.nowFunc = func() time.Time { return depositedAt.Add(7*24*time.Hour - time.Second) }
	result := guardrail.Evaluate(signal, cfg, positions, 100)
	if result.Passed {
		t.Fatal("expected withdrawal inside the hold period to be blocked")
	}
	if result.RuleName != RuleMinHoldPeriod {
		t.Errorf("expected rule %s, got %s", RuleMinHoldPeriod, result.RuleName)
	}

	// Exactly the minimum passes
	guardrail.nowFunc = func() time.Time { return depositedAt.Add(7 * 24 * time.Hour) }
	result = guardrail.Evaluate(signal, cfg, positions, 100)
	if !result.Passed {
		t.Errorf("expected withdrawal at exactly the hold period to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_Withdraw_NoPositionPasses(t *testing.T) {
	guardrail := NewGuardrail()

	signal := testutil.CreateTestSignal(testutil.SignalWithAction(entities.ActionWithdraw))
	result := guardrail.Evaluate(signal, testutil.DefaultGuardrailConfig(), nil, 0)

	if !result.Passed {
		t.Errorf("expected withdrawal with no position to pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_Hold_AlwaysPasses(t *testing.T) {
	guardrail := NewGuardrail()

	// Limits strict enough to block anything that moves capital
	cfg := entities.GuardrailConfig{
		MinAprThreshold:   99,
		MaxSingleVaultPct: 1,
		MinHoldPeriodDays: 365,
		MaxVaultCount:     1,
		MaxDailyTrades:    1,
		MaxTradeSizeUSD:   1,
	}

	signal := testutil.CreateTestSignal(
		testutil.SignalWithAction(entities.ActionHold),
		testutil.SignalWithAmount(1000000),
		testutil.SignalWithAPR(0),
	)

	result := guardrail.Evaluate(signal, cfg, nil, 0)
	if !result.Passed {
		t.Errorf("expected hold to always pass, blocked by %s: %s", result.RuleName, result.Reason)
	}
}

func TestGuardrail_CheckTradeCount(t *testing.T) {
	guardrail := NewGuardrail()
	cfg := testutil.DefaultGuardrailConfig()

	result := guardrail.CheckTradeCount(cfg, cfg.MaxDailyTrades-1)
	if !result.Passed {
		t.Errorf("expected count under the limit to pass, got %s", result.Reason)
	}

	result = guardrail.CheckTradeCount(cfg, cfg.MaxDailyTrades)
	if result.Passed {
		t.Fatal("expected count at the limit to be blocked")
	}
	if result.RuleName != RuleMaxDailyTrades {
		t.Errorf("expected rule %s, got %s", RuleMaxDailyTrades, result.RuleName)
	}
}
