package entities

import (
	"math/big"
)

// SwapCall is one on-chain call of a swap plan. Calls execute strictly
// in order; a hop must not be submitted before the previous hop's
// transaction is confirmed, since it spends the balance that hop
// produced.
type SwapCall struct {
	PoolID   string `json:"pool_id"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`

	// Target contract and encoded call data
	Target string `json:"target"`
	Data   []byte `json:"-"`

	// AmountIn is zero for intermediate hops: the contract spends the
	// signer's then-current balance of the intermediate token, because
	// the exact amount is unknown until the prior hop settles.
	AmountIn *big.Int `json:"-"`

	// MinAmountOut is the slippage bound on the final hop only.
	// Intermediate hops accept any positive output; over-constraining
	// them risks spurious reverts from normal price movement.
	MinAmountOut *big.Int `json:"-"`
}

// SwapPlan is the ordered list of on-chain calls for one trade
type SwapPlan struct {
	Calls []SwapCall `json:"calls"`
}
