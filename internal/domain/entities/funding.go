package entities

import (
	"math/big"
	"time"
)

// FundingEvent is a detected increase in a monitored wallet's on-chain
// balance of one token. Decreases are never reported; outbound
// transfers are tracked elsewhere.
type FundingEvent struct {
	WalletAddress string    `json:"wallet_address"`
	Token         Token     `json:"token"`
	RawAmount     *big.Int  `json:"-"`
	RawAmountStr  string    `json:"raw_amount"`
	Amount        float64   `json:"amount"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Timeline event types recorded for a wallet
const (
	EventFundingDetected  = "funding_detected"
	EventConversionFailed = "conversion_failed"
	EventTradeExecuted    = "trade_executed"
	EventGuardrailBlocked = "guardrail_blocked"
)

// TimelineEvent is one entry in a wallet's activity log
type TimelineEvent struct {
	ID            int64     `db:"id" json:"id"`
	WalletAddress string    `db:"wallet_address" json:"wallet_address"`
	EventType     string    `db:"event_type" json:"event_type"`
	Payload       []byte    `db:"payload" json:"payload"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
