package interpreter

import (
	"regexp"
	"strings"
	"unicode"
)

// Intent is the classified purpose of a transcript.
type Intent string

const (
	IntentEmpty     Intent = "empty"
	IntentSummary   Intent = "market_summary"
	IntentAsset     Intent = "asset"
	IntentPortfolio Intent = "portfolio"
	IntentBIT10     Intent = "bit10"
	IntentFallback  Intent = "fallback"
)

// Asset is a tracked cryptocurrency the interpreter can answer about.
type Asset struct {
	// ID is the upstream market id.
	ID string

	// Name is the spoken display name.
	Name string

	// Tickers are matched as whole words. Tickers that are also ordinary
	// English words ("dot", "link") are left out.
	Tickers []string
}

// TrackedAssets lists the assets, in matching priority, that a question can
// name. Their ids are the set the spoken market summary is built from.
var TrackedAssets = []Asset{
	{ID: "bitcoin", Name: "Bitcoin", Tickers: []string{"btc"}},
	{ID: "ethereum", Name: "Ethereum", Tickers: []string{"eth"}},
	{ID: "cardano", Name: "Cardano", Tickers: []string{"ada"}},
	{ID: "solana", Name: "Solana"},
	{ID: "polkadot", Name: "Polkadot"},
	{ID: "chainlink", Name: "Chainlink"},
	{ID: "uniswap", Name: "Uniswap"},
	{ID: "avalanche-2", Name: "Avalanche", Tickers: []string{"avax"}},
	{ID: "polygon", Name: "Polygon", Tickers: []string{"matic"}},
	{ID: "stellar", Name: "Stellar", Tickers: []string{"xlm"}},
}

var summaryKeywords = []string{"summary", "market", "today", "overview"}

var bit10Spelling = regexp.MustCompile(`\bbit(?:[\s-]+(?:10|ten)|10)\b`)

// Normalize lower-cases text and folds the spoken forms of the product
// name ("bit 10", "bit ten", "bit-10") into "bit10".
func Normalize(text string) string {
	return bit10Spelling.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "bit10")
}

// Classify returns the intent of an already normalised transcript and, for
// IntentAsset, the matched asset. Summary keywords win over asset names,
// asset names over "portfolio", and "portfolio" over "bit10".
func Classify(normalized string) (Intent, Asset) {
	if strings.TrimSpace(normalized) == "" {
		return IntentEmpty, Asset{}
	}
	for _, kw := range summaryKeywords {
		if strings.Contains(normalized, kw) {
			return IntentSummary, Asset{}
		}
	}

	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = struct{}{}
	}
	for _, a := range TrackedAssets {
		if _, ok := words[strings.ToLower(a.Name)]; ok {
			return IntentAsset, a
		}
		for _, t := range a.Tickers {
			if _, ok := words[t]; ok {
				return IntentAsset, a
			}
		}
	}

	switch {
	case strings.Contains(normalized, "portfolio"):
		return IntentPortfolio, Asset{}
	case strings.Contains(normalized, "bit10"):
		return IntentBIT10, Asset{}
	}
	return IntentFallback, Asset{}
}

// Keywords returns the vocabulary worth boosting in speech recognition:
// tracked asset names and tickers plus the product name.
func Keywords() []string {
	out := []string{"BIT10"}
	for _, a := range TrackedAssets {
		out = append(out, a.Name)
		out = append(out, a.Tickers...)
	}
	return out
}

func assetByID(id string) (Asset, bool) {
	for _, a := range TrackedAssets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

func trackedIDs() []string {
	ids := make([]string, len(TrackedAssets))
	for i, a := range TrackedAssets {
		ids[i] = a.ID
	}
	return ids
}
