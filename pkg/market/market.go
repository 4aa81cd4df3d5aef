// Package market defines the market-data types shared across bit10voice and the
// Provider interface for upstream price sources.
//
// A Provider wraps a third-party market API (CoinGecko, or a compatible pro
// endpoint) and exposes the three lookups the dashboard needs: a ranked list,
// a single-coin record, and a flat simple-price snapshot. Values are
// pass-through; no correctness guarantee is made beyond decoding.
//
// Implementations must be safe for concurrent use.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Provider.Coin when the upstream has no record for
// the requested id.
var ErrNotFound = errors.New("market: asset not found")

// Asset is an immutable snapshot of a single cryptocurrency as reported by the
// upstream. Snapshots are replaced wholesale on refresh, never patched.
type Asset struct {
	// ID is the upstream identifier (e.g., "bitcoin").
	ID string `json:"id"`

	// Symbol is the lower-case ticker (e.g., "btc").
	Symbol string `json:"symbol"`

	// Name is the display name (e.g., "Bitcoin").
	Name string `json:"name"`

	// Price is the current price in USD.
	Price decimal.Decimal `json:"current_price"`

	// Change24h is the 24-hour price change in percent.
	Change24h float64 `json:"price_change_percentage_24h"`

	// MarketCap is the market capitalisation in USD.
	MarketCap decimal.Decimal `json:"market_cap"`

	// Volume24h is the traded volume over the last 24 hours in USD.
	Volume24h decimal.Decimal `json:"total_volume"`

	// Image is the icon URL.
	Image string `json:"image"`

	// Sparkline is the 7-day hourly price trail, oldest first. May be nil.
	Sparkline []decimal.Decimal `json:"sparkline,omitempty"`
}

// Quote is a flat simple-price record for one asset.
type Quote struct {
	Price     decimal.Decimal `json:"usd"`
	Change24h float64         `json:"usd_24h_change"`
	Volume24h decimal.Decimal `json:"usd_24h_vol"`
	MarketCap decimal.Decimal `json:"usd_market_cap"`
}

// Summary holds aggregate market figures derived on each refresh.
type Summary struct {
	TotalMarketCap decimal.Decimal `json:"total_market_cap"`
	TotalVolume    decimal.Decimal `json:"total_volume"`

	// BTCDominance is Bitcoin's share of TotalMarketCap in percent.
	BTCDominance float64 `json:"btc_dominance"`

	// SentimentIndex is a single 0–100 scalar summarising market mood
	// (0 = extreme fear, 100 = extreme greed).
	SentimentIndex int `json:"fear_greed_index"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the abstraction over any market-data backend.
type Provider interface {
	// Markets returns up to limit assets ordered by descending market cap,
	// including their 7-day sparkline when the backend supports it.
	Markets(ctx context.Context, limit int) ([]Asset, error)

	// Coin returns the record for a single asset. Returns ErrNotFound (possibly
	// wrapped) when the backend has no such id.
	Coin(ctx context.Context, id string) (Asset, error)

	// SimplePrice returns a flat quote per requested id. Ids the backend does not
	// know are omitted from the result rather than reported as errors.
	SimplePrice(ctx context.Context, ids []string) (map[string]Quote, error)
}
