package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// ErrNoRoute indicates no direct or hub-bridged path exists between two
// tokens. Callers must never treat it as a zero-output quote.
var ErrNoRoute = errors.New("no route between tokens")

// PoolLister enumerates the router's pool registry
type PoolLister interface {
	ListPools(ctx context.Context) ([]entities.ExchangePool, error)
}

// RouteResolver finds swap paths across the router's pairwise pools.
// It maintains a bidirectional pair index rebuilt from the chain at
// most once per TTL window; concurrent cache misses share a single
// rebuild.
type RouteResolver struct {
	pools  PoolLister
	hubs   []string
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	index   map[string]string
	builtAt time.Time

	group   singleflight.Group
	nowFunc func() time.Time
}

// NewRouteResolver creates a route resolver. Hub token addresses are
// tried in order when no direct pool exists; the primary hub
// stablecoin is listed before the wrapped gas token.
func NewRouteResolver(pools PoolLister, hubs []string, ttl time.Duration, logger *zap.Logger) *RouteResolver {
	normalized := make([]string, len(hubs))
	for i, h := range hubs {
		normalized[i] = strings.ToLower(h)
	}

	return &RouteResolver{
		pools:   pools,
		hubs:    normalized,
		ttl:     ttl,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Resolve finds a route from tokenIn to tokenOut. Routes are direct
// (one hop) or bridged through a single hub token (two hops); no
// deeper search is attempted.
func (r *RouteResolver) Resolve(ctx context.Context, tokenIn, tokenOut string) (entities.Route, error) {
	tokenIn = strings.ToLower(tokenIn)
	tokenOut = strings.ToLower(tokenOut)

	if tokenIn == tokenOut {
		return entities.Route{}, fmt.Errorf("cannot route token %s to itself", tokenIn)
	}

	index, err := r.pairIndex(ctx)
	if err != nil {
		return entities.Route{}, err
	}

	if poolID, ok := index[pairKey(tokenIn, tokenOut)]; ok {
		return entities.Route{Hops: []entities.Hop{
			{PoolID: poolID, TokenIn: tokenIn, TokenOut: tokenOut},
		}}, nil
	}

	for _, hub := range r.hubs {
		if hub == tokenIn || hub == tokenOut {
			continue
		}

		first, ok := index[pairKey(tokenIn, hub)]
		if !ok {
			continue
		}
		second, ok := index[pairKey(hub, tokenOut)]
		if !ok {
			continue
		}

		return entities.Route{Hops: []entities.Hop{
			{PoolID: first, TokenIn: tokenIn, TokenOut: hub},
			{PoolID: second, TokenIn: hub, TokenOut: tokenOut},
		}}, nil
	}

	return entities.Route{}, ErrNoRoute
}

// pairIndex returns the current pair index, rebuilding it when the TTL
// window has expired. Concurrent callers during a miss coalesce into
// one rebuild.
func (r *RouteResolver) pairIndex(ctx context.Context) (map[string]string, error) {
	r.mu.RLock()
	if r.index != nil && r.nowFunc().Sub(r.builtAt) < r.ttl {
		index := r.index
		r.mu.RUnlock()
		return index, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do("rebuild", func() (interface{}, error) {
		// Another caller may have finished the rebuild while this one
		// waited on the flight group
		r.mu.RLock()
		if r.index != nil && r.nowFunc().Sub(r.builtAt) < r.ttl {
			index := r.index
			r.mu.RUnlock()
			return index, nil
		}
		r.mu.RUnlock()

		pools, err := r.pools.ListPools(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild pool index: %w", err)
		}

		index := make(map[string]string, len(pools)*2)
		for _, pool := range pools {
			a := strings.ToLower(pool.TokenA)
			b := strings.ToLower(pool.TokenB)
			index[pairKey(a, b)] = pool.ID
			index[pairKey(b, a)] = pool.ID
		}

		r.mu.Lock()
		r.index = index
		r.builtAt = r.nowFunc()
		r.mu.Unlock()

		r.logger.Debug("Rebuilt pool pair index",
			zap.Int("pools", len(pools)),
		)

		return index, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(map[string]string), nil
}

func pairKey(a, b string) string {
	return a + ":" + b
}
