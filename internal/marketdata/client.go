// Package marketdata is the dashboard's view of the upstream market API. It
// wraps a [market.Provider] with the recovery behaviour the UI depends on:
// the ranked list never fails, single lookups degrade to "absent", and simple
// quotes surface their error so callers can choose a canned answer.
package marketdata

import (
	"context"
	"slices"
	"time"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/pkg/market"
	"go.opentelemetry.io/otel/metric"
)

// DefaultLimit is the list size used when a caller passes a non-positive limit.
const DefaultLimit = 10

// Option configures a [Client].
type Option func(*Client)

// WithMetrics records fetch latency and fallbacks on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithProviderName sets the provider label used in metrics. Default "coingecko".
func WithProviderName(name string) Option {
	return func(c *Client) { c.providerName = name }
}

// Client fetches market data through a [market.Provider]. It is safe for
// concurrent use.
type Client struct {
	provider     market.Provider
	providerName string
	metrics      *observe.Metrics
}

// New returns a Client reading from p.
func New(p market.Provider, opts ...Option) *Client {
	c := &Client{provider: p, providerName: "coingecko"}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TopAssets returns at most limit assets ordered by descending market cap.
// It never fails: on any upstream error the built-in fallback dataset is
// returned instead.
func (c *Client) TopAssets(ctx context.Context, limit int) []market.Asset {
	assets, _ := c.FetchTopAssets(ctx, limit)
	return assets
}

// FetchTopAssets is [Client.TopAssets] that also reports whether the
// fallback dataset was served in place of live data.
func (c *Client) FetchTopAssets(ctx context.Context, limit int) (assets []market.Asset, fallback bool) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	err := c.observed(ctx, "markets", func(ctx context.Context) error {
		var err error
		assets, err = c.provider.Markets(ctx, limit)
		return err
	})
	if err != nil {
		observe.Logger(ctx).Warn("marketdata: serving fallback assets", "err", err)
		if c.metrics != nil {
			c.metrics.RecordMarketFallback(ctx, "top_assets")
		}
		return FallbackAssets(limit), true
	}
	if len(assets) > limit {
		assets = assets[:limit]
	}
	return assets, false
}

// AssetByID returns the asset with the given upstream id. The boolean is
// false on any failure, including an unknown id.
func (c *Client) AssetByID(ctx context.Context, id string) (market.Asset, bool) {
	if id == "" {
		return market.Asset{}, false
	}
	var a market.Asset
	err := c.observed(ctx, "coin", func(ctx context.Context) error {
		var err error
		a, err = c.provider.Coin(ctx, id)
		return err
	})
	if err != nil {
		observe.Logger(ctx).Debug("marketdata: asset lookup failed", "id", id, "err", err)
		return market.Asset{}, false
	}
	return a, true
}

// Quotes returns a simple-price snapshot for ids. Unlike the other lookups it
// reports failures so the caller can pick its own fallback wording.
func (c *Client) Quotes(ctx context.Context, ids []string) (map[string]market.Quote, error) {
	var quotes map[string]market.Quote
	err := c.observed(ctx, "simple_price", func(ctx context.Context) error {
		var err error
		quotes, err = c.provider.SimplePrice(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *Client) observed(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := observe.Span(ctx, "marketdata."+op, fn)
	if c.metrics == nil {
		return err
	}
	c.metrics.MarketFetchDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("op", op)))
	status := "ok"
	if err != nil {
		status = "error"
		c.metrics.RecordProviderError(ctx, c.providerName, "market")
	}
	c.metrics.RecordProviderRequest(ctx, c.providerName, "market", status)
	return err
}

// sortByMarketCap orders assets by descending market cap in place.
func sortByMarketCap(assets []market.Asset) {
	slices.SortStableFunc(assets, func(a, b market.Asset) int {
		return b.MarketCap.Cmp(a.MarketCap)
	})
}
