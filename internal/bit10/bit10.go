// Package bit10 describes the BIT10 index products shown on the dashboard.
package bit10

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Index is one BIT10 index fund.
type Index struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Change24h   float64         `json:"change_24h"`
	Description string          `json:"description"`

	// Composition lists the constituent tickers by weight, largest first.
	Composition []string `json:"composition"`
}

// About is the product blurb shown next to the index list.
const About = "BIT10 index funds provide diversified exposure to cryptocurrency markets through professionally managed portfolios. Each fund tracks a specific segment of the crypto market with automatic rebalancing."

var indices = []Index{
	{
		Name:        "BIT10 TOP",
		Symbol:      "BIT10.TOP",
		Price:       decimal.RequireFromString("1847.23"),
		Change24h:   3.45,
		Description: "Top 10 largest cryptocurrencies by market cap",
		Composition: []string{"BTC", "ETH", "BNB", "XRP", "SOL", "ADA", "AVAX", "DOT", "MATIC", "UNI"},
	},
}

// Indices returns the available index funds. The result is a fresh copy.
func Indices() []Index {
	out := make([]Index, len(indices))
	for i, idx := range indices {
		idx.Composition = slices.Clone(idx.Composition)
		out[i] = idx
	}
	return out
}
