package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyRoute indicates a route with no hops was passed where a
// resolved route is required. This is a programmer error, not a
// runtime condition callers should recover from.
var ErrEmptyRoute = errors.New("route has no hops")

// ExchangePool is a pairwise pool registered on the exchange router
type ExchangePool struct {
	ID     string `json:"id"`
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
}

// Hop is one pairwise swap within a route, through a single pool
type Hop struct {
	PoolID   string `json:"pool_id"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
}

// Route is an ordered sequence of hops connecting two tokens. Routes
// are at most two hops long; the router only supports pairwise pools
// and deeper search is unnecessary for a small, curated token set.
type Route struct {
	Hops []Hop `json:"hops"`
}

// TokenIn returns the route's input token address
func (r Route) TokenIn() string {
	if len(r.Hops) == 0 {
		return ""
	}
	return r.Hops[0].TokenIn
}

// TokenOut returns the route's final output token address
func (r Route) TokenOut() string {
	if len(r.Hops) == 0 {
		return ""
	}
	return r.Hops[len(r.Hops)-1].TokenOut
}

// Validate checks that the route is non-empty and that consecutive
// hops connect: each hop's output token must be the next hop's input.
func (r Route) Validate() error {
	if len(r.Hops) == 0 {
		return ErrEmptyRoute
	}
	for i := 0; i < len(r.Hops)-1; i++ {
		if !strings.EqualFold(r.Hops[i].TokenOut, r.Hops[i+1].TokenIn) {
			return fmt.Errorf("route hop %d output %s does not match hop %d input %s",
				i, r.Hops[i].TokenOut, i+1, r.Hops[i+1].TokenIn)
		}
	}
	return nil
}
