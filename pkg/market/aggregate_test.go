package market_test

import (
	"testing"
	"time"

	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/shopspring/decimal"
)

func fixedNow() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestPlaceholderAggregator(t *testing.T) {
	t.Parallel()

	s := market.PlaceholderAggregator{Now: fixedNow}.Aggregate(nil)
	if !s.TotalMarketCap.Equal(decimal.NewFromInt(2_100_000_000_000)) {
		t.Errorf("TotalMarketCap = %s, want 2.1e12", s.TotalMarketCap)
	}
	if !s.TotalVolume.Equal(decimal.NewFromInt(86_500_000_000)) {
		t.Errorf("TotalVolume = %s, want 86.5e9", s.TotalVolume)
	}
	if s.BTCDominance != 52.3 {
		t.Errorf("BTCDominance = %v, want 52.3", s.BTCDominance)
	}
	if s.SentimentIndex != 74 {
		t.Errorf("SentimentIndex = %d, want 74", s.SentimentIndex)
	}
	if !s.UpdatedAt.Equal(fixedNow()) {
		t.Errorf("UpdatedAt = %v, want %v", s.UpdatedAt, fixedNow())
	}
}

func TestComputedAggregator(t *testing.T) {
	t.Parallel()

	assets := []market.Asset{
		{ID: "bitcoin", MarketCap: decimal.NewFromInt(600), Volume24h: decimal.NewFromInt(10), Change24h: 4},
		{ID: "ethereum", MarketCap: decimal.NewFromInt(400), Volume24h: decimal.NewFromInt(5), Change24h: -1},
	}
	s := market.ComputedAggregator{Now: fixedNow}.Aggregate(assets)

	if !s.TotalMarketCap.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalMarketCap = %s, want 1000", s.TotalMarketCap)
	}
	if !s.TotalVolume.Equal(decimal.NewFromInt(15)) {
		t.Errorf("TotalVolume = %s, want 15", s.TotalVolume)
	}
	if s.BTCDominance != 60 {
		t.Errorf("BTCDominance = %v, want 60", s.BTCDominance)
	}
	// weighted mean change = (600*4 - 400*1) / 1000 = 2 -> 50 + 2*5 = 60
	if s.SentimentIndex != 60 {
		t.Errorf("SentimentIndex = %d, want 60", s.SentimentIndex)
	}
}

func TestComputedAggregator_ClampsSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		change float64
		want   int
	}{
		{"crash", -40, 0},
		{"flat", 0, 50},
		{"euphoria", 25, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := market.ComputedAggregator{}.Aggregate([]market.Asset{
				{ID: "bitcoin", MarketCap: decimal.NewFromInt(1), Change24h: tt.change},
			})
			if s.SentimentIndex != tt.want {
				t.Errorf("SentimentIndex = %d, want %d", s.SentimentIndex, tt.want)
			}
		})
	}
}

func TestComputedAggregator_Empty(t *testing.T) {
	t.Parallel()

	s := market.ComputedAggregator{}.Aggregate(nil)
	if !s.TotalMarketCap.IsZero() || s.BTCDominance != 0 || s.SentimentIndex != 50 {
		t.Errorf("empty aggregate = %+v", s)
	}
}
