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

func setupQuoteServiceTest(pools ...entities.ExchangePool) (*QuoteService, *testutil.MockRouter) {
	router := testutil.NewMockRouter(pools...)
	hubs := []string{testutil.USDCAddress, testutil.WETHAddress}
	resolver := NewRouteResolver(router, hubs, 5*time.Minute, zap.NewNop())
	service := NewQuoteService(resolver, router, zap.NewNop())
	return service, router
}

func TestQuoteService_Quote_Direct(t *testing.T) {
	service, router := setupQuoteServiceTest(
		entities.ExchangePool{ID: "pool-usdt-dai", TokenA: testutil.USDTAddress, TokenB: testutil.DAIAddress},
	)

	// 100 USDT (6 decimals) in, 95 DAI (18 decimals) out
	amountIn, _ := new(big.Int).SetString("100000000", 10)
	amountOut, _ := new(big.Int).SetString("95000000000000000000", 10)
	router.AmountOuts["pool-usdt-dai"] = amountOut

	quote, err := service.Quote(context.Background(), testutil.USDT, testutil.DAI, amountIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.AmountOut.Cmp(amountOut) != 0 {
		t.Errorf("expected amount out %s, got %s", amountOut, quote.AmountOut)
	}
	if math.Abs(quote.Rate-0.95) > 1e-9 {
		t.Errorf("expected rate 0.95, got %f", quote.Rate)
	}
}

func TestQuoteService_Quote_MultiHopChainsAmounts(t *testing.T) {
	service, router := setupQuoteServiceTest(
		entities.ExchangePool{ID: "pool-usdt-usdc", TokenA: testutil.USDTAddress, TokenB: testutil.USDCAddress},
		entities.ExchangePool{ID: "pool-usdc-dai", TokenA: testutil.USDCAddress, TokenB: testutil.DAIAddress},
	)

	firstOut := big.NewInt(99000000)
	finalOut, _ := new(big.Int).SetString("98000000000000000000", 10)
	router.AmountOuts["pool-usdt-usdc"] = firstOut
	router.AmountOuts["pool-usdc-dai"] = finalOut

	var hopInputs []*big.Int
	router.GetAmountOutFunc = func(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error) {
		hopInputs = append(hopInputs, new(big.Int).Set(amountIn))
		if poolID == "pool-usdt-usdc" {
			return new(big.Int).Set(firstOut), nil
		}
		return new(big.Int).Set(finalOut), nil
	}

	amountIn := big.NewInt(100000000)
	quote, err := service.Quote(context.Background(), testutil.USDT, testutil.DAI, amountIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hopInputs) != 2 {
		t.Fatalf("expected 2 hop quotes, got %d", len(hopInputs))
	}
	if hopInputs[0].Cmp(amountIn) != 0 {
		t.Errorf("expected first hop input %s, got %s", amountIn, hopInputs[0])
	}
	// The second hop must be quoted on the first hop's output, not the
	// original input
	if hopInputs[1].Cmp(firstOut) != 0 {
		t.Errorf("expected second hop input %s, got %s", firstOut, hopInputs[1])
	}
	if quote.AmountOut.Cmp(finalOut) != 0 {
		t.Errorf("expected final amount out %s, got %s", finalOut, quote.AmountOut)
	}
	if len(quote.Route.Hops) != 2 {
		t.Errorf("expected 2 hops in quote route, got %d", len(quote.Route.Hops))
	}
}

func TestQuoteService_Quote_ZeroInput(t *testing.T) {
	service, router := setupQuoteServiceTest(
		entities.ExchangePool{ID: "pool-usdt-dai", TokenA: testutil.USDTAddress, TokenB: testutil.DAIAddress},
	)
	router.AmountOuts["pool-usdt-dai"] = big.NewInt(0)

	quote, err := service.Quote(context.Background(), testutil.USDT, testutil.DAI, big.NewInt(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.Rate != 0 {
		t.Errorf("expected zero rate for zero input, got %f", quote.Rate)
	}
}

func TestQuoteService_Quote_NoRoute(t *testing.T) {
	service, _ := setupQuoteServiceTest(
		entities.ExchangePool{ID: "pool-usdt-weth", TokenA: testutil.USDTAddress, TokenB: testutil.WETHAddress},
	)

	_, err := service.Quote(context.Background(), testutil.USDT, testutil.DAI, big.NewInt(1000000))
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestQuoteService_Quote_RPCFailureIsNotNoRoute(t *testing.T) {
	service, router := setupQuoteServiceTest(
		entities.ExchangePool{ID: "pool-usdt-dai", TokenA: testutil.USDTAddress, TokenB: testutil.DAIAddress},
	)
	router.GetAmountOutFunc = func(ctx context.Context, poolID, tokenIn string, amountIn *big.Int) (*big.Int, error) {
		return nil, errors.New("connection refused")
	}

	_, err := service.Quote(context.Background(), testutil.USDT, testutil.DAI, big.NewInt(1000000))
	if err == nil {
		t.Fatal("expected error when the per-hop quote call fails")
	}
	if errors.Is(err, ErrNoRoute) {
		t.Error("RPC failure must be distinguishable from a missing route")
	}
}
