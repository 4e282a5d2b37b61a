package services

import (
	"fmt"
	"math/big"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// bpsDenominator is the basis-point scale used for slippage math
var bpsDenominator = big.NewInt(10000)

// SwapEncoder encodes swap calls against the router contract
type SwapEncoder interface {
	EncodeSwap(poolID, tokenIn string, amountIn, minAmountOut *big.Int) ([]byte, error)
	RouterAddress() string
}

// PlanBuilder turns a resolved route and a quote into the ordered,
// slippage-bounded on-chain calls that execute it
type PlanBuilder struct {
	encoder     SwapEncoder
	slippageBps int64
}

// NewPlanBuilder creates a plan builder with the given default
// slippage tolerance in basis points
func NewPlanBuilder(encoder SwapEncoder, slippageBps int64) *PlanBuilder {
	return &PlanBuilder{
		encoder:     encoder,
		slippageBps: slippageBps,
	}
}

// ApplySlippage reduces an estimated output by the given tolerance in
// basis points. The guard value is computed entirely in integer
// arithmetic; only display math uses floats.
func ApplySlippage(amountOut *big.Int, slippageBps int64) *big.Int {
	if slippageBps <= 0 {
		return new(big.Int).Set(amountOut)
	}

	keep := big.NewInt(10000 - slippageBps)
	if keep.Sign() < 0 {
		keep.SetInt64(0)
	}

	minOut := new(big.Int).Mul(amountOut, keep)
	return minOut.Div(minOut, bpsDenominator)
}

// BuildPlan produces one call per hop. Hop 0 spends amountIn; later
// hops pass a zero input so the router spends the signer's then-current
// balance of the intermediate token, since the exact intermediate
// amount is unknown until the prior hop settles. Only the final hop
// carries the slippage bound; intermediate hops accept any positive
// output.
func (b *PlanBuilder) BuildPlan(route entities.Route, amountIn, minAmountOut *big.Int) (entities.SwapPlan, error) {
	if err := route.Validate(); err != nil {
		return entities.SwapPlan{}, err
	}

	last := len(route.Hops) - 1
	calls := make([]entities.SwapCall, 0, len(route.Hops))

	for i, hop := range route.Hops {
		hopIn := big.NewInt(0)
		if i == 0 {
			hopIn = new(big.Int).Set(amountIn)
		}

		hopMinOut := big.NewInt(1)
		if i == last {
			hopMinOut = new(big.Int).Set(minAmountOut)
		}

		data, err := b.encoder.EncodeSwap(hop.PoolID, hop.TokenIn, hopIn, hopMinOut)
		if err != nil {
			return entities.SwapPlan{}, fmt.Errorf("failed to encode hop %d: %w", i, err)
		}

		calls = append(calls, entities.SwapCall{
			PoolID:       hop.PoolID,
			TokenIn:      hop.TokenIn,
			TokenOut:     hop.TokenOut,
			Target:       b.encoder.RouterAddress(),
			Data:         data,
			AmountIn:     hopIn,
			MinAmountOut: hopMinOut,
		})
	}

	return entities.SwapPlan{Calls: calls}, nil
}

// BuildPlanFromQuote applies the builder's default slippage to a
// quote's estimated output and builds the plan
func (b *PlanBuilder) BuildPlanFromQuote(quote entities.Quote) (entities.SwapPlan, error) {
	minOut := ApplySlippage(quote.AmountOut, b.slippageBps)
	return b.BuildPlan(quote.Route, quote.AmountIn, minOut)
}
