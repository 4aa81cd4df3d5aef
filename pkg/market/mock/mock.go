// Package mock provides a test double for market.Provider.
//
// Each method returns its configured result and records the call so tests can
// assert how often the upstream was hit.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/bit10voice/pkg/market"
)

var _ market.Provider = (*Provider)(nil)

// Provider is a mock implementation of market.Provider.
type Provider struct {
	mu sync.Mutex

	// MarketsResult and MarketsErr are returned by Markets. The result is
	// truncated to the requested limit.
	MarketsResult []market.Asset
	MarketsErr    error

	// CoinResult maps ids to the asset returned by Coin. Unknown ids yield
	// market.ErrNotFound unless CoinErr is set.
	CoinResult map[string]market.Asset
	CoinErr    error

	// SimplePriceResult and SimplePriceErr are returned by SimplePrice.
	SimplePriceResult map[string]market.Quote
	SimplePriceErr    error

	MarketsCalls     []int
	CoinCalls        []string
	SimplePriceCalls [][]string
}

// Markets records the call and returns MarketsResult, MarketsErr.
func (p *Provider) Markets(_ context.Context, limit int) ([]market.Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.MarketsCalls = append(p.MarketsCalls, limit)
	if p.MarketsErr != nil {
		return nil, p.MarketsErr
	}
	out := p.MarketsResult
	if limit < len(out) {
		out = out[:limit]
	}
	return append([]market.Asset(nil), out...), nil
}

// Coin records the call and returns the configured asset for id.
func (p *Provider) Coin(_ context.Context, id string) (market.Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CoinCalls = append(p.CoinCalls, id)
	if p.CoinErr != nil {
		return market.Asset{}, p.CoinErr
	}
	a, ok := p.CoinResult[id]
	if !ok {
		return market.Asset{}, market.ErrNotFound
	}
	return a, nil
}

// SimplePrice records the call and returns SimplePriceResult filtered to ids.
func (p *Provider) SimplePrice(_ context.Context, ids []string) (map[string]market.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SimplePriceCalls = append(p.SimplePriceCalls, append([]string(nil), ids...))
	if p.SimplePriceErr != nil {
		return nil, p.SimplePriceErr
	}
	out := make(map[string]market.Quote, len(ids))
	for _, id := range ids {
		if q, ok := p.SimplePriceResult[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

// Calls returns the total number of upstream calls recorded so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.MarketsCalls) + len(p.CoinCalls) + len(p.SimplePriceCalls)
}
