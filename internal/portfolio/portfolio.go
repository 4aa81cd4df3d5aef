// Package portfolio values user-entered holdings against current market
// prices.
package portfolio

import (
	"strings"
	"time"

	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/shopspring/decimal"
)

// Holding is a user-entered position. Holdings are immutable once added.
type Holding struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Icon          string          `json:"icon,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
}

// Position is a holding priced at the current market.
type Position struct {
	Holding

	// Price is the current asset price, or the purchase price when the asset
	// is not in the market list.
	Price decimal.Decimal `json:"price"`

	// Live reports whether Price came from the market list.
	Live bool `json:"live"`

	Value     decimal.Decimal `json:"value"`
	Invested  decimal.Decimal `json:"invested"`
	ChangePct float64         `json:"change_pct"`
}

// Valuation is the whole portfolio priced at the current market.
type Valuation struct {
	Positions []Position      `json:"positions"`
	Value     decimal.Decimal `json:"value"`
	Invested  decimal.Decimal `json:"invested"`
	ChangePct float64         `json:"change_pct"`
}

// Best returns the position with the highest percentage change.
func (v Valuation) Best() (Position, bool) {
	if len(v.Positions) == 0 {
		return Position{}, false
	}
	best := v.Positions[0]
	for _, p := range v.Positions[1:] {
		if p.ChangePct > best.ChangePct {
			best = p
		}
	}
	return best, true
}

// FindAsset returns the asset whose symbol matches symbol, ignoring case.
func FindAsset(assets []market.Asset, symbol string) (market.Asset, bool) {
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return market.Asset{}, false
}

// Value prices holdings against assets. Value is the sum of amount times
// current price; the change is measured against the amount invested.
func Value(holdings []Holding, assets []market.Asset) Valuation {
	v := Valuation{Positions: make([]Position, 0, len(holdings))}
	for _, h := range holdings {
		p := Position{Holding: h, Price: h.PurchasePrice}
		if a, ok := FindAsset(assets, h.Symbol); ok && a.Price.IsPositive() {
			p.Price = a.Price
			p.Live = true
		}
		p.Value = h.Amount.Mul(p.Price)
		p.Invested = h.Amount.Mul(h.PurchasePrice)
		p.ChangePct = changePct(p.Value, p.Invested)
		v.Positions = append(v.Positions, p)
		v.Value = v.Value.Add(p.Value)
		v.Invested = v.Invested.Add(p.Invested)
	}
	v.ChangePct = changePct(v.Value, v.Invested)
	return v
}

func changePct(value, invested decimal.Decimal) float64 {
	if !invested.IsPositive() {
		return 0
	}
	return value.Sub(invested).Div(invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
