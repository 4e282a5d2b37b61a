package services

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
	"github.com/radityaw/treasury-agent/internal/testutil"
)

func setupTradeServiceTest(pools ...entities.ExchangePool) (*TradeService, *testutil.MockRouter, *testutil.MockPositionRepository, *testutil.MockTimelineRepository) {
	router := testutil.NewMockRouter(pools...)
	positionRepo := testutil.NewMockPositionRepository()
	timelineRepo := testutil.NewMockTimelineRepository()
	logger := zap.NewNop()

	resolver := NewRouteResolver(router, []string{testutil.USDCAddress, testutil.WETHAddress}, 5*time.Minute, logger)
	quotes := NewQuoteService(resolver, router, logger)
	planner := NewPlanBuilder(router, 50)
	ledger := NewLedgerService(positionRepo, logger)

	service := NewTradeService(
		quotes,
		planner,
		NewGuardrail(),
		ledger,
		positionRepo,
		timelineRepo,
		router,
		testutil.CreateTestRegistry(),
		testutil.DefaultGuardrailConfig(),
		testutil.USDC,
		logger,
	)
	return service, router, positionRepo, timelineRepo
}

func TestTradeService_ExecuteSignal_GuardrailBlocks(t *testing.T) {
	service, router, _, timelineRepo := setupTradeServiceTest()
	ctx := context.Background()

	signal := testutil.CreateTestSignal(testutil.SignalWithAPR(2))
	err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal)

	var blocked *GuardrailBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected GuardrailBlockedError, got %v", err)
	}
	if blocked.Rule != RuleMinAprThreshold {
		t.Errorf("expected rule %s, got %s", RuleMinAprThreshold, blocked.Rule)
	}

	if len(router.Submitted) != 0 {
		t.Errorf("expected no on-chain calls for a blocked signal, got %d", len(router.Submitted))
	}
	if len(timelineRepo.EventsOfType(entities.EventGuardrailBlocked)) != 1 {
		t.Error("expected a guardrail_blocked timeline event")
	}
}

func TestTradeService_ExecuteSignal_Hold(t *testing.T) {
	service, router, _, timelineRepo := setupTradeServiceTest()
	ctx := context.Background()

	signal := testutil.CreateTestSignal(testutil.SignalWithAction(entities.ActionHold))
	if err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(router.Submitted) != 0 {
		t.Errorf("expected no on-chain calls for hold, got %d", len(router.Submitted))
	}
	if len(timelineRepo.Events) != 0 {
		t.Errorf("expected no timeline events for hold, got %d", len(timelineRepo.Events))
	}
}

func TestTradeService_ExecuteSignal_DepositExecutes(t *testing.T) {
	service, router, positionRepo, timelineRepo := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("USDC"),
		testutil.PositionWithBalance(1000),
	))

	// $100 of USDC quotes to 95 DAI
	amountOut, _ := new(big.Int).SetString("95000000000000000000", 10)
	router.AmountOuts["pool-usdc-dai"] = amountOut

	signal := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(100))
	if err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(router.Submitted) != 1 {
		t.Fatalf("expected 1 submitted call, got %d", len(router.Submitted))
	}

	call := router.Submitted[0]
	// $100 in USDC base units
	if call.AmountIn.Cmp(big.NewInt(100000000)) != 0 {
		t.Errorf("expected amount in 100000000, got %s", call.AmountIn)
	}
	// 50 bps off the quoted output
	expectedMinOut, _ := new(big.Int).SetString("94525000000000000000", 10)
	if call.MinAmountOut.Cmp(expectedMinOut) != 0 {
		t.Errorf("expected min out %s, got %s", expectedMinOut, call.MinAmountOut)
	}

	position, ok := positionRepo.GetStored(testutil.AliceAddress, "DAI")
	if !ok {
		t.Fatal("expected DAI position to be created")
	}
	if math.Abs(position.Balance-95) > 1e-9 {
		t.Errorf("expected DAI balance 95, got %f", position.Balance)
	}

	if len(timelineRepo.EventsOfType(entities.EventTradeExecuted)) != 1 {
		t.Error("expected a trade_executed timeline event")
	}
}

func TestTradeService_ExecuteSignal_DepositInsufficientOperatingBalance(t *testing.T) {
	service, router, positionRepo, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	// The WETH position keeps the portfolio large enough that the
	// concentration rule passes; only the operating balance is short
	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("WETH"),
		testutil.PositionWithBalance(100),
	))
	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("USDC"),
		testutil.PositionWithBalance(10),
	))

	signal := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(20))

	err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(router.Submitted) != 0 {
		t.Errorf("expected no on-chain calls, got %d", len(router.Submitted))
	}
}

func TestTradeService_ExecuteSignal_WithdrawWithoutPosition(t *testing.T) {
	service, router, _, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	signal := testutil.CreateTestSignal(
		testutil.SignalWithAction(entities.ActionWithdraw),
		testutil.SignalWithDestination("DAI"),
		testutil.SignalWithAmount(50),
	)

	err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(router.Submitted) != 0 {
		t.Errorf("expected no on-chain calls, got %d", len(router.Submitted))
	}
}

func TestTradeService_ExecuteSignal_WithdrawExecutes(t *testing.T) {
	service, router, positionRepo, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	depositedAt := time.Now().Add(-30 * 24 * time.Hour)
	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("DAI"),
		testutil.PositionWithBalance(200),
		testutil.PositionWithDepositedAt(depositedAt),
	))

	// 50 DAI quotes to $49.80 of USDC
	router.AmountOuts["pool-usdc-dai"] = big.NewInt(49800000)

	signal := testutil.CreateTestSignal(
		testutil.SignalWithAction(entities.ActionWithdraw),
		testutil.SignalWithDestination("DAI"),
		testutil.SignalWithAmount(50),
	)
	if err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(router.Submitted) != 1 {
		t.Fatalf("expected 1 submitted call, got %d", len(router.Submitted))
	}

	position, _ := positionRepo.GetStored(testutil.AliceAddress, "DAI")
	if math.Abs(position.Balance-150) > 1e-9 {
		t.Errorf("expected DAI balance 150, got %f", position.Balance)
	}
}

func TestTradeService_ExecuteSignal_FailedHopSurfacesError(t *testing.T) {
	service, router, positionRepo, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	router.SubmitCallFunc = func(ctx context.Context, call entities.SwapCall) (string, error) {
		return "", errors.New("execution reverted: slippage")
	}

	signal := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(100))
	err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal)
	if err == nil {
		t.Fatal("expected error when a hop fails")
	}

	// The ledger must not record a trade that never settled
	if _, ok := positionRepo.GetStored(testutil.AliceAddress, "DAI"); ok {
		t.Error("expected no ledger entry after a failed swap")
	}
}

func TestTradeService_ExecuteSignal_DailyTradeLimit(t *testing.T) {
	service, router, positionRepo, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	limits := testutil.DefaultGuardrailConfig()
	limits.MaxDailyTrades = 2
	service.limits = limits

	// A large operating position keeps the other rules clear
	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("USDC"),
		testutil.PositionWithBalance(10000),
	))

	signal := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(10))

	for i := 0; i < 2; i++ {
		if err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal); err != nil {
			t.Fatalf("unexpected error on trade %d: %v", i+1, err)
		}
	}

	err := service.ExecuteSignal(ctx, testutil.AliceAddress, signal)
	var blocked *GuardrailBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected GuardrailBlockedError, got %v", err)
	}
	if blocked.Rule != RuleMaxDailyTrades {
		t.Errorf("expected rule %s, got %s", RuleMaxDailyTrades, blocked.Rule)
	}
	if len(router.Submitted) != 2 {
		t.Errorf("expected 2 submitted calls, got %d", len(router.Submitted))
	}
}

func TestTradeService_ExecuteSignal_HoldPassesWithDailyLimitExhausted(t *testing.T) {
	service, router, positionRepo, timelineRepo := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)
	ctx := context.Background()

	limits := testutil.DefaultGuardrailConfig()
	limits.MaxDailyTrades = 1
	service.limits = limits

	positionRepo.AddPosition(testutil.CreateTestPosition(
		testutil.PositionWithToken("USDC"),
		testutil.PositionWithBalance(10000),
	))

	deposit := testutil.CreateTestSignal(testutil.SignalWithDestination("DAI"), testutil.SignalWithAmount(10))
	if err := service.ExecuteSignal(ctx, testutil.AliceAddress, deposit); err != nil {
		t.Fatalf("unexpected error exhausting daily limit: %v", err)
	}

	hold := testutil.CreateTestSignal(testutil.SignalWithAction(entities.ActionHold))
	if err := service.ExecuteSignal(ctx, testutil.AliceAddress, hold); err != nil {
		t.Fatalf("hold must pass with the daily limit exhausted, got %v", err)
	}

	if len(router.Submitted) != 1 {
		t.Errorf("expected only the deposit's call, got %d", len(router.Submitted))
	}
	if len(timelineRepo.EventsOfType(entities.EventGuardrailBlocked)) != 0 {
		t.Error("expected no guardrail_blocked event for hold")
	}
}

func TestTradeService_ConvertDeposit_CreditsPrimary(t *testing.T) {
	service, router, positionRepo, _ := setupTradeServiceTest(
		entities.ExchangePool{ID: "pool-usdt-usdc", TokenA: testutil.USDTAddress, TokenB: testutil.USDCAddress},
	)
	ctx := context.Background()

	// 50 USDT converts to $49.90 of USDC
	router.AmountOuts["pool-usdt-usdc"] = big.NewInt(49900000)

	if err := service.ConvertDeposit(ctx, testutil.AliceAddress, testutil.USDT, big.NewInt(50000000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(router.Submitted) != 1 {
		t.Fatalf("expected 1 submitted call, got %d", len(router.Submitted))
	}

	position, ok := positionRepo.GetStored(testutil.AliceAddress, "USDC")
	if !ok {
		t.Fatal("expected USDC position to be credited")
	}
	if math.Abs(position.Balance-49.9) > 1e-9 {
		t.Errorf("expected USDC balance 49.9, got %f", position.Balance)
	}
}
