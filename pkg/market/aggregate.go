package market

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator derives a Summary from a freshly fetched asset list.
type Aggregator interface {
	Aggregate(assets []Asset) Summary
}

// PlaceholderAggregator returns a fixed set of demonstration figures regardless
// of its input.
type PlaceholderAggregator struct {
	// Now is used for Summary.UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

// Placeholder figures reported by PlaceholderAggregator.
var (
	PlaceholderMarketCap = decimal.New(21, 11) // 2.1e12
	PlaceholderVolume    = decimal.New(865, 8) // 86.5e9
)

const (
	PlaceholderDominance = 52.3
	PlaceholderSentiment = 74
)

// Aggregate implements Aggregator.
func (a PlaceholderAggregator) Aggregate(_ []Asset) Summary {
	return Summary{
		TotalMarketCap: PlaceholderMarketCap,
		TotalVolume:    PlaceholderVolume,
		BTCDominance:   PlaceholderDominance,
		SentimentIndex: PlaceholderSentiment,
		UpdatedAt:      now(a.Now),
	}
}

// ComputedAggregator derives the summary from the asset list it is given.
// Totals cover only the listed assets, so they understate the whole market when
// the list is truncated.
type ComputedAggregator struct {
	// DominantID is the asset whose share is reported as BTCDominance.
	// Defaults to "bitcoin".
	DominantID string

	// Now is used for Summary.UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

// Aggregate implements Aggregator. The sentiment index is the cap-weighted mean
// 24h change mapped linearly from [-10%, +10%] onto [0, 100] and clamped.
func (a ComputedAggregator) Aggregate(assets []Asset) Summary {
	dominant := a.DominantID
	if dominant == "" {
		dominant = "bitcoin"
	}

	var capSum, volSum, domCap decimal.Decimal
	var weighted float64
	for _, as := range assets {
		capSum = capSum.Add(as.MarketCap)
		volSum = volSum.Add(as.Volume24h)
		if as.ID == dominant {
			domCap = as.MarketCap
		}
		weighted += as.MarketCap.InexactFloat64() * as.Change24h
	}

	s := Summary{
		TotalMarketCap: capSum,
		TotalVolume:    volSum,
		SentimentIndex: 50,
		UpdatedAt:      now(a.Now),
	}
	if capSum.IsPositive() {
		s.BTCDominance, _ = domCap.Div(capSum).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		mean := weighted / capSum.InexactFloat64()
		s.SentimentIndex = int(math.Round(math.Max(0, math.Min(100, 50+mean*5))))
	}
	return s
}

func now(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}
