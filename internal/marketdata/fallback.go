package marketdata

import (
	"math"

	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/shopspring/decimal"
)

// sparklinePoints is one week of hourly samples.
const sparklinePoints = 168

type fallbackSeed struct {
	asset  market.Asset
	base   float64
	amp    float64
	period float64
}

var fallbackSeeds = []fallbackSeed{
	{
		asset: market.Asset{
			ID:        "bitcoin",
			Symbol:    "btc",
			Name:      "Bitcoin",
			Price:     decimal.RequireFromString("67234.56"),
			Change24h: 2.34,
			MarketCap: decimal.New(132, 10),
			Volume24h: decimal.New(285, 8),
			Image:     "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
		},
		base: 67000, amp: 2000, period: 10,
	},
	{
		asset: market.Asset{
			ID:        "ethereum",
			Symbol:    "eth",
			Name:      "Ethereum",
			Price:     decimal.RequireFromString("3456.78"),
			Change24h: 1.67,
			MarketCap: decimal.New(4152, 8),
			Volume24h: decimal.New(158, 8),
			Image:     "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
		},
		base: 3400, amp: 200, period: 8,
	},
	{
		asset: market.Asset{
			ID:        "cardano",
			Symbol:    "ada",
			Name:      "Cardano",
			Price:     decimal.RequireFromString("0.4567"),
			Change24h: -0.89,
			MarketCap: decimal.New(162, 8),
			Volume24h: decimal.New(42, 7),
			Image:     "https://assets.coingecko.com/coins/images/975/large/cardano.png",
		},
		base: 0.45, amp: 0.05, period: 12,
	},
}

// FallbackAssets returns a fresh copy of the built-in dataset served when the
// upstream is unreachable, truncated to limit and ordered by descending
// market cap.
func FallbackAssets(limit int) []market.Asset {
	out := make([]market.Asset, 0, len(fallbackSeeds))
	for _, s := range fallbackSeeds {
		a := s.asset
		a.Sparkline = sineSparkline(s.base, s.amp, s.period)
		out = append(out, a)
	}
	sortByMarketCap(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sineSparkline(base, amp, period float64) []decimal.Decimal {
	pts := make([]decimal.Decimal, sparklinePoints)
	for i := range pts {
		pts[i] = decimal.NewFromFloat(base + math.Sin(float64(i)/period)*amp)
	}
	return pts
}
