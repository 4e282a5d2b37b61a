package entities

import (
	"math/big"
)

// Quote is the result of simulating a swap along a resolved route
type Quote struct {
	TokenIn   Token    `json:"token_in"`
	TokenOut  Token    `json:"token_out"`
	AmountIn  *big.Int `json:"-"`
	AmountOut *big.Int `json:"-"`

	// String forms of the raw amounts for serialization
	AmountInRaw  string `json:"amount_in"`
	AmountOutRaw string `json:"amount_out"`

	// Rate is output per input in human units, decimal-adjusted for
	// both tokens. Zero when the input amount is zero.
	Rate float64 `json:"rate"`

	Route Route `json:"route"`
}

// RestoreAmounts rebuilds the big integer amounts from their raw
// string forms. Needed after JSON deserialization, which carries only
// the string fields.
func (q *Quote) RestoreAmounts() {
	q.AmountIn, _ = new(big.Int).SetString(q.AmountInRaw, 10)
	q.AmountOut, _ = new(big.Int).SetString(q.AmountOutRaw, 10)
}

// NewQuote builds a quote from raw hop results, computing the
// decimal-adjusted effective rate. Raw integer amounts are never
// divided directly; tokens of different precision would produce
// exponent-skewed rates.
func NewQuote(tokenIn, tokenOut Token, amountIn, amountOut *big.Int, route Route) Quote {
	inHuman := tokenIn.FormatAmount(amountIn)
	outHuman := tokenOut.FormatAmount(amountOut)

	var rate float64
	if inHuman > 0 {
		rate = outHuman / inHuman
	}

	return Quote{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		AmountInRaw:  amountIn.String(),
		AmountOutRaw: amountOut.String(),
		Rate:         rate,
		Route:        route,
	}
}
