package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/bit10voice/pkg/market"
)

// MarketFallback implements [market.Provider] over a [FallbackGroup]. A
// not-found answer is authoritative: it neither trips a breaker nor moves on
// to the next upstream.
type MarketFallback struct {
	group *FallbackGroup[market.Provider]
}

var _ market.Provider = (*MarketFallback)(nil)

// NewMarketFallback creates a [MarketFallback] with primary as the preferred
// upstream. cfg.CircuitBreaker.IsFailure is replaced.
func NewMarketFallback(primary market.Provider, primaryName string, cfg FallbackConfig) *MarketFallback {
	cfg.CircuitBreaker.IsFailure = isMarketFailure
	return &MarketFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

func isMarketFailure(err error) bool {
	return DefaultIsFailure(err) && !errors.Is(err, market.ErrNotFound)
}

// AddFallback registers another upstream.
func (f *MarketFallback) AddFallback(name string, p market.Provider) { f.group.AddFallback(name, p) }

// States reports each upstream's breaker state.
func (f *MarketFallback) States() map[string]State { return f.group.States() }

// Markets implements [market.Provider].
func (f *MarketFallback) Markets(ctx context.Context, limit int) ([]market.Asset, error) {
	return ExecuteWithResult(f.group, func(p market.Provider) ([]market.Asset, error) {
		return p.Markets(ctx, limit)
	})
}

// Coin implements [market.Provider].
func (f *MarketFallback) Coin(ctx context.Context, id string) (market.Asset, error) {
	return ExecuteWithResult(f.group, func(p market.Provider) (market.Asset, error) {
		return p.Coin(ctx, id)
	})
}

// SimplePrice implements [market.Provider].
func (f *MarketFallback) SimplePrice(ctx context.Context, ids []string) (map[string]market.Quote, error) {
	return ExecuteWithResult(f.group, func(p market.Provider) (map[string]market.Quote, error) {
		return p.SimplePrice(ctx, ids)
	})
}
