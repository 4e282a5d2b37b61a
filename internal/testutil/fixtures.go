package testutil

import (
	"time"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// Common test addresses
const (
	USDCAddress  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	USDTAddress  = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	DAIAddress   = "0x6b175474e89094c44da98b954eedeac495271d0f"
	WETHAddress  = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	AliceAddress = "0x1111111111111111111111111111111111111111"
	BobAddress   = "0x2222222222222222222222222222222222222222"
)

// Standard test tokens
var (
	USDC = entities.Token{Symbol: "USDC", Address: USDCAddress, Decimals: 6}
	USDT = entities.Token{Symbol: "USDT", Address: USDTAddress, Decimals: 6, Convertible: true}
	DAI  = entities.Token{Symbol: "DAI", Address: DAIAddress, Decimals: 18, Convertible: true}
	WETH = entities.Token{Symbol: "WETH", Address: WETHAddress, Decimals: 18}
)

// CreateTestRegistry builds a registry over the standard test tokens
func CreateTestRegistry() *entities.TokenRegistry {
	return entities.NewTokenRegistry([]entities.Token{USDC, USDT, DAI, WETH})
}

// CreateTestPosition creates a test position with default values
func CreateTestPosition(opts ...PositionOption) entities.Position {
	p := entities.Position{
		WalletAddress: AliceAddress,
		TokenSymbol:   "DAI",
		Balance:       100,
		AvgEntryRate:  1,
		DepositedAt:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

type PositionOption func(*entities.Position)

func PositionWithWallet(wallet string) PositionOption {
	return func(p *entities.Position) {
		p.WalletAddress = wallet
	}
}

func PositionWithToken(symbol string) PositionOption {
	return func(p *entities.Position) {
		p.TokenSymbol = symbol
	}
}

func PositionWithBalance(balance float64) PositionOption {
	return func(p *entities.Position) {
		p.Balance = balance
	}
}

func PositionWithAvgRate(rate float64) PositionOption {
	return func(p *entities.Position) {
		p.AvgEntryRate = rate
	}
}

func PositionWithDepositedAt(t time.Time) PositionOption {
	return func(p *entities.Position) {
		p.DepositedAt = t
	}
}

// CreateTestSignal creates a test deposit signal with default values
func CreateTestSignal(opts ...SignalOption) entities.TradeSignal {
	s := entities.TradeSignal{
		Destination:  "DAI",
		Action:       entities.ActionDeposit,
		AmountUSD:    100,
		EstimatedAPR: 8,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

type SignalOption func(*entities.TradeSignal)

func SignalWithAction(action entities.SignalAction) SignalOption {
	return func(s *entities.TradeSignal) {
		s.Action = action
	}
}

func SignalWithDestination(destination string) SignalOption {
	return func(s *entities.TradeSignal) {
		s.Destination = destination
	}
}

func SignalWithAmount(amountUSD float64) SignalOption {
	return func(s *entities.TradeSignal) {
		s.AmountUSD = amountUSD
	}
}

func SignalWithAPR(apr float64) SignalOption {
	return func(s *entities.TradeSignal) {
		s.EstimatedAPR = apr
	}
}

// DefaultGuardrailConfig returns permissive limits suitable for tests
func DefaultGuardrailConfig() entities.GuardrailConfig {
	return entities.GuardrailConfig{
		MinAprThreshold:   5,
		MaxSingleVaultPct: 50,
		MinHoldPeriodDays: 7,
		MaxVaultCount:     5,
		MaxDailyTrades:    20,
		MaxTradeSizeUSD:   10000,
	}
}
