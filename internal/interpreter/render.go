package interpreter

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/pkg/market"
)

// moverThreshold is the 24h change, in percent, above which an asset counts
// as a gainer (or below its negation, a loser).
const moverThreshold = 5.0

type mover struct {
	name  string
	quote market.Quote
}

// renderSummary names the top one or two gainers and losers of quotes.
func renderSummary(quotes map[string]market.Quote) string {
	var gainers, losers []mover
	for id, q := range quotes {
		name := id
		if a, ok := assetByID(id); ok {
			name = a.Name
		}
		switch {
		case q.Change24h > moverThreshold:
			gainers = append(gainers, mover{name, q})
		case q.Change24h < -moverThreshold:
			losers = append(losers, mover{name, q})
		}
	}
	byMagnitude := func(a, b mover) int {
		if c := cmp.Compare(math.Abs(b.quote.Change24h), math.Abs(a.quote.Change24h)); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	}
	slices.SortFunc(gainers, byMagnitude)
	slices.SortFunc(losers, byMagnitude)

	var parts []string
	if len(gainers) > 0 {
		g := gainers[0]
		s := fmt.Sprintf("Top gainers include %s up %s%% to %s", g.name, FormatPct(g.quote.Change24h), FormatUSD(g.quote.Price))
		if len(gainers) > 1 {
			s += fmt.Sprintf(", and %s up %s%%", gainers[1].name, FormatPct(gainers[1].quote.Change24h))
		}
		parts = append(parts, s)
	}
	if len(losers) > 0 {
		l := losers[0]
		s := fmt.Sprintf("On the downside, %s is down %s%% to %s", l.name, FormatPct(l.quote.Change24h), FormatUSD(l.quote.Price))
		if len(losers) > 1 {
			s += fmt.Sprintf(", and %s is down %s%%", losers[1].name, FormatPct(losers[1].quote.Change24h))
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		parts = append(parts, summaryQuiet)
	}
	return summaryOpening + strings.Join(parts, ". ") + summaryClosing
}

// renderAsset reports one asset's price, 24h change and market cap.
func renderAsset(a Asset, q market.Quote) string {
	return fmt.Sprintf("%s is currently trading at %s. It's %s %s%% in the last 24 hours. The market cap is $%s billion.",
		a.Name, FormatUSD(q.Price), direction(q.Change24h), FormatPct(q.Change24h), FormatBillions(q.MarketCap))
}

// staleAsset is the answer when live data for a is unavailable.
func staleAsset(a Asset) string {
	switch a.ID {
	case "bitcoin":
		return replyBitcoinStale
	case "ethereum":
		return replyEthereumStale
	}
	return fmt.Sprintf(replyAssetUnavailable, a.Name)
}

// renderPortfolio describes a live valuation.
func renderPortfolio(v portfolio.Valuation) string {
	n := len(v.Positions)
	noun := "holdings"
	if n == 1 {
		noun = "holding"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your portfolio is worth %s across %d %s. ", FormatUSD(v.Value.Round(2)), n, noun)
	if v.Invested.IsPositive() {
		fmt.Fprintf(&b, "That's %s %s%% against the %s you invested.", direction(v.ChangePct), FormatPct(v.ChangePct), FormatUSD(v.Invested))
	}
	if best, ok := v.Best(); ok && n > 1 {
		name := best.Name
		if name == "" {
			name = strings.ToUpper(best.Symbol)
		}
		fmt.Fprintf(&b, " Your best performer is %s, %s %s%%.", name, direction(best.ChangePct), FormatPct(best.ChangePct))
	}
	return strings.TrimSpace(b.String())
}
