package dashboard_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/bit10voice/internal/bit10"
	"github.com/MrWong99/bit10voice/internal/dashboard"
	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/pkg/market"
)

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		Assets: []market.Asset{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: decimal.NewFromInt(43250), Change24h: 2.5, MarketCap: decimal.NewFromInt(845_000_000_000)},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Price: decimal.NewFromInt(2650), Change24h: -1.2, MarketCap: decimal.NewFromInt(318_000_000_000)},
		},
		Summary: &market.Summary{
			TotalMarketCap: market.PlaceholderMarketCap,
			TotalVolume:    market.PlaceholderVolume,
			BTCDominance:   market.PlaceholderDominance,
			SentimentIndex: market.PlaceholderSentiment,
		},
		Holdings: []portfolio.Holding{
			{ID: "h1", Symbol: "btc", Name: "Bitcoin", Amount: decimal.RequireFromString("0.5"), PurchasePrice: decimal.NewFromInt(40000)},
		},
		Conversation: []store.Turn{
			{ID: "t1", Role: store.RoleUser, Text: "How is the market?"},
		},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	got := dashboard.Markdown(testSnapshot(), bit10.Indices())

	for _, want := range []string{
		"# BIT10 Crypto Dashboard",
		"## Market Overview",
		"$2100.00B",
		"52.3%",
		"74 (Neutral)",
		"## Top Assets",
		"$43,250.00",
		"+2.50%",
		"-1.20%",
		"BTC",
		"## Portfolio",
		"$21,625.00",
		"BIT10 TOP (BIT10.TOP)",
		"BTC, ETH, BNB",
		"How is the market?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown() missing %q\n%s", want, got)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	t.Parallel()

	got := dashboard.Markdown(store.Snapshot{Loading: true, Err: "upstream down"}, nil)

	for _, want := range []string{"Refreshing market data", "upstream down", "No holdings yet."} {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown() missing %q\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"Market Overview", "Top Assets", "BIT10 Index Funds", "Conversation"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("Markdown() contains %q for an empty snapshot", unwanted)
		}
	}
}

func TestMarkdown_FallbackNotice(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()

	if got := dashboard.Markdown(snap, nil); strings.Contains(got, "sample data") {
		t.Errorf("live snapshot shows the offline notice:\n%s", got)
	}
	snap.Fallback = true
	if got := dashboard.Markdown(snap, nil); !strings.Contains(got, "prices below are sample data") {
		t.Errorf("fallback snapshot lacks the offline notice:\n%s", got)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := dashboard.Render("# Hello\n\nworld", dashboard.WithStyle("notty"), dashboard.WithWidth(40))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "world") {
		t.Errorf("Render() = %q, want the heading and text", out)
	}
}

func TestRender_UnknownStyle(t *testing.T) {
	t.Parallel()

	if _, err := dashboard.Render("# x", dashboard.WithStyle("no-such-style")); err == nil {
		t.Fatal("Render() with an unknown style should fail")
	}
}

func TestSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		want  string
	}{
		{0, "Fear"},
		{50, "Fear"},
		{51, "Neutral"},
		{75, "Neutral"},
		{76, "Greed"},
		{100, "Greed"},
	}
	for _, tc := range tests {
		if got := dashboard.Sentiment(tc.index); got != tc.want {
			t.Errorf("Sentiment(%d) = %q, want %q", tc.index, got, tc.want)
		}
	}
}

func TestSignedPct(t *testing.T) {
	t.Parallel()

	if got := dashboard.SignedPct(2.5); got != "+2.50%" {
		t.Errorf("SignedPct(2.5) = %q", got)
	}
	if got := dashboard.SignedPct(-0.125); got != "-0.13%" && got != "-0.12%" {
		t.Errorf("SignedPct(-0.125) = %q", got)
	}
}
