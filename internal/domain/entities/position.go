package entities

import (
	"time"
)

// TradeDirection distinguishes buys from sells in the position ledger
type TradeDirection string

const (
	TradeBuy  TradeDirection = "buy"
	TradeSell TradeDirection = "sell"
)

// Position is a wallet's holding in one token: balance in token units
// plus the weighted-average rate paid to acquire it. One row exists
// per (wallet, token) pair.
type Position struct {
	WalletAddress string    `db:"wallet_address" json:"wallet_address"`
	TokenSymbol   string    `db:"token_symbol" json:"token_symbol"`
	Balance       float64   `db:"balance" json:"balance"`
	AvgEntryRate  float64   `db:"avg_entry_rate" json:"avg_entry_rate"`
	DepositedAt   time.Time `db:"deposited_at" json:"deposited_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CostBasisUSD returns the USD cost basis of the position. AvgEntryRate
// is the cost paid per token, so basis is balance times rate.
func (p Position) CostBasisUSD() float64 {
	return p.Balance * p.AvgEntryRate
}

// PortfolioValueUSD sums the cost basis of a wallet's positions
func PortfolioValueUSD(positions []Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.CostBasisUSD()
	}
	return total
}
