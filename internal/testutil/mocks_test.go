package testutil

import (
	"context"
	"math/big"
	"testing"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

func TestMockPositionRepository_UpsertPreservesDepositedAt(t *testing.T) {
	repo := NewMockPositionRepository()
	ctx := context.Background()

	original := CreateTestPosition()
	repo.AddPosition(original)

	updated := original
	updated.Balance = 500
	updated.DepositedAt = original.DepositedAt.AddDate(0, 1, 0)

	if err := repo.Upsert(ctx, &updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := repo.GetStored(original.WalletAddress, original.TokenSymbol)
	if !ok {
		t.Fatal("expected stored position")
	}
	if stored.Balance != 500 {
		t.Errorf("expected balance 500, got %f", stored.Balance)
	}
	if !stored.DepositedAt.Equal(original.DepositedAt) {
		t.Errorf("expected deposited_at preserved at %v, got %v", original.DepositedAt, stored.DepositedAt)
	}
}

func TestMockPositionRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewMockPositionRepository()

	position, err := repo.Get(context.Background(), AliceAddress, "DAI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if position != nil {
		t.Errorf("expected nil for a missing position, got %+v", position)
	}
}

func TestMockPositionRepository_ListByWallet(t *testing.T) {
	repo := NewMockPositionRepository()

	repo.AddPosition(CreateTestPosition(PositionWithToken("DAI")))
	repo.AddPosition(CreateTestPosition(PositionWithToken("USDT")))
	repo.AddPosition(CreateTestPosition(PositionWithWallet(BobAddress), PositionWithToken("DAI")))

	positions, err := repo.ListByWallet(context.Background(), AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 2 {
		t.Errorf("expected 2 positions for alice, got %d", len(positions))
	}
}

func TestMockRouter_GetAmountOutDefaultsToEcho(t *testing.T) {
	router := NewMockRouter()
	ctx := context.Background()

	out, err := router.GetAmountOut(ctx, "unknown-pool", USDCAddress, big.NewInt(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Int64() != 42 {
		t.Errorf("expected echoed amount 42, got %s", out)
	}

	router.AmountOuts["pool-a"] = big.NewInt(99)
	out, _ = router.GetAmountOut(ctx, "pool-a", USDCAddress, big.NewInt(42))
	if out.Int64() != 99 {
		t.Errorf("expected configured amount 99, got %s", out)
	}
}

func TestMockTimelineRepository_EventsOfType(t *testing.T) {
	repo := NewMockTimelineRepository()
	ctx := context.Background()

	repo.LogEvent(ctx, AliceAddress, entities.EventFundingDetected, nil)
	repo.LogEvent(ctx, AliceAddress, entities.EventTradeExecuted, nil)
	repo.LogEvent(ctx, BobAddress, entities.EventFundingDetected, nil)

	if got := len(repo.EventsOfType(entities.EventFundingDetected)); got != 2 {
		t.Errorf("expected 2 funding events, got %d", got)
	}
	if got := len(repo.EventsOfType(entities.EventGuardrailBlocked)); got != 0 {
		t.Errorf("expected 0 blocked events, got %d", got)
	}
}
