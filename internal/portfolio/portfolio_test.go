package portfolio_test

import (
	"math"
	"testing"

	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValue(t *testing.T) {
	t.Parallel()
	assets := []market.Asset{
		{ID: "bitcoin", Symbol: "btc", Price: d("60000")},
		{ID: "ethereum", Symbol: "eth", Price: d("3000")},
	}
	holdings := []portfolio.Holding{
		{ID: "1", Symbol: "BTC", Amount: d("0.5"), PurchasePrice: d("40000")},
		{ID: "2", Symbol: "eth", Amount: d("2"), PurchasePrice: d("4000")},
		{ID: "3", Symbol: "xyz", Amount: d("10"), PurchasePrice: d("1")},
	}

	v := portfolio.Value(holdings, assets)

	if !v.Value.Equal(d("36010")) {
		t.Errorf("Value = %s, want 36010", v.Value)
	}
	if !v.Invested.Equal(d("28010")) {
		t.Errorf("Invested = %s, want 28010", v.Invested)
	}
	if want := 8000.0 / 28010 * 100; math.Abs(v.ChangePct-want) > 1e-9 {
		t.Errorf("ChangePct = %v, want %v", v.ChangePct, want)
	}

	tests := []struct {
		idx       int
		live      bool
		changePct float64
	}{
		{0, true, 50},
		{1, true, -25},
		{2, false, 0},
	}
	for _, tt := range tests {
		p := v.Positions[tt.idx]
		if p.Live != tt.live {
			t.Errorf("position %d live = %v, want %v", tt.idx, p.Live, tt.live)
		}
		if math.Abs(p.ChangePct-tt.changePct) > 1e-9 {
			t.Errorf("position %d change = %v, want %v", tt.idx, p.ChangePct, tt.changePct)
		}
	}

	best, ok := v.Best()
	if !ok || best.ID != "1" {
		t.Errorf("Best = %+v, %v; want holding 1", best, ok)
	}
}

func TestValue_Empty(t *testing.T) {
	t.Parallel()
	v := portfolio.Value(nil, nil)
	if !v.Value.IsZero() || v.ChangePct != 0 || len(v.Positions) != 0 {
		t.Errorf("Value(nil) = %+v", v)
	}
	if _, ok := v.Best(); ok {
		t.Error("Best reported a position for an empty portfolio")
	}
}

func TestFindAsset(t *testing.T) {
	t.Parallel()
	assets := []market.Asset{{ID: "cardano", Symbol: "ada"}}
	if a, ok := portfolio.FindAsset(assets, "ADA"); !ok || a.ID != "cardano" {
		t.Errorf("FindAsset(ADA) = %+v, %v", a, ok)
	}
	if _, ok := portfolio.FindAsset(assets, "dot"); ok {
		t.Error("FindAsset(dot) found an asset")
	}
}
