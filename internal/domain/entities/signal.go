package entities

// SignalAction is the kind of action a trade signal proposes
type SignalAction string

const (
	ActionDeposit  SignalAction = "deposit"
	ActionWithdraw SignalAction = "withdraw"
	ActionHold     SignalAction = "hold"
)

// TradeSignal is a proposed action supplied by an external signal
// source. The guardrail engine only validates signals, never
// generates them.
type TradeSignal struct {
	Destination  string       `json:"destination"`
	Action       SignalAction `json:"action"`
	AmountUSD    float64      `json:"amount_usd"`
	EstimatedAPR float64      `json:"estimated_apr"`
}

// GuardrailConfig holds per-wallet trading limits. Mutated only by
// explicit user settings updates.
type GuardrailConfig struct {
	MinAprThreshold   float64 `json:"min_apr_threshold"`
	MaxSingleVaultPct float64 `json:"max_single_vault_pct"`
	MinHoldPeriodDays float64 `json:"min_hold_period_days"`
	MaxVaultCount     int     `json:"max_vault_count"`

	// Derived limits
	MaxDailyTrades  int     `json:"max_daily_trades"`
	MaxTradeSizeUSD float64 `json:"max_trade_size_usd"`
}

// GuardrailResult is the outcome of evaluating a signal against a
// wallet's limits. On failure RuleName identifies the first rule that
// blocked the signal and Reason embeds the measured value and the
// configured limit; the reason string is consumed by downstream
// logging and UI.
type GuardrailResult struct {
	Passed   bool   `json:"passed"`
	RuleName string `json:"rule_name,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
