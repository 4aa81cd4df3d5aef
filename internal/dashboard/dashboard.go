// Package dashboard renders the dashboard state as a terminal report: the
// state is laid out as Markdown and then styled for the terminal.
package dashboard

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"

	"github.com/MrWong99/bit10voice/internal/bit10"
	"github.com/MrWong99/bit10voice/internal/interpreter"
	"github.com/MrWong99/bit10voice/internal/store"
)

// DefaultWidth is the word-wrap width of [Render].
const DefaultWidth = 100

// Markdown lays out snap and the index funds as a Markdown document.
func Markdown(snap store.Snapshot, indices []bit10.Index) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("BIT10 Crypto Dashboard")
	switch {
	case snap.Loading:
		doc.PlainText(md.Italic("Refreshing market data..."))
	case !snap.UpdatedAt.IsZero():
		doc.PlainText(md.Italic("Updated " + snap.UpdatedAt.Format(time.RFC1123)))
	}
	if snap.Err != "" {
		doc.PlainText(md.Bold("Error:") + " " + snap.Err)
	}
	if snap.Fallback {
		doc.PlainText(md.Bold("Offline:") + " the market API is unreachable, prices below are sample data.")
	}

	if s := snap.Summary; s != nil {
		doc.H2("Market Overview")
		doc.Table(md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Metric", "Value"},
			Rows: [][]string{
				{"Total Market Cap", "$" + interpreter.FormatBillions(s.TotalMarketCap) + "B"},
				{"24h Volume", "$" + interpreter.FormatBillions(s.TotalVolume) + "B"},
				{"BTC Dominance", strconv.FormatFloat(s.BTCDominance, 'f', 1, 64) + "%"},
				{"Fear & Greed", fmt.Sprintf("%d (%s)", s.SentimentIndex, Sentiment(s.SentimentIndex))},
			},
		})
	}

	if len(snap.Assets) > 0 {
		doc.H2("Top Assets")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"#", "Name", "Symbol", "Price", "24h", "Market Cap"},
		}
		for i, a := range snap.Assets {
			table.Rows = append(table.Rows, []string{
				strconv.Itoa(i + 1),
				a.Name,
				strings.ToUpper(a.Symbol),
				interpreter.FormatUSD(a.Price),
				SignedPct(a.Change24h),
				"$" + interpreter.FormatBillions(a.MarketCap) + "B",
			})
		}
		doc.Table(table)
	}

	doc.H2("Portfolio")
	if v, ok := snap.Valuation(); ok {
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Asset", "Amount", "Price", "Value", "P/L"},
		}
		for _, p := range v.Positions {
			price := interpreter.FormatUSD(p.Price)
			if !p.Live {
				price += "*"
			}
			table.Rows = append(table.Rows, []string{
				p.Name + " (" + strings.ToUpper(p.Symbol) + ")",
				p.Amount.String(),
				price,
				interpreter.FormatUSD(p.Value),
				SignedPct(p.ChangePct),
			})
		}
		table.Rows = append(table.Rows, []string{
			md.Bold("Total"), "", "", md.Bold(interpreter.FormatUSD(v.Value)), md.Bold(SignedPct(v.ChangePct)),
		})
		doc.Table(table)
	} else {
		doc.PlainText("No holdings yet.")
	}

	if len(indices) > 0 {
		doc.H2("BIT10 Index Funds")
		for _, idx := range indices {
			doc.H3(idx.Name + " (" + idx.Symbol + ")")
			doc.PlainText(fmt.Sprintf("%s %s. %s",
				md.Bold(interpreter.FormatUSD(idx.Price)), SignedPct(idx.Change24h), idx.Description))
			doc.BulletList(md.Bold("Composition:") + " " + strings.Join(idx.Composition, ", "))
		}
		doc.PlainText(bit10.About)
	}

	if n := len(snap.Conversation); n > 0 {
		doc.H2("Conversation")
		var lines []string
		for _, t := range snap.Conversation {
			lines = append(lines, md.Bold(string(t.Role)+":")+" "+t.Text)
		}
		doc.BulletList(lines...)
	}

	return doc.String()
}

// Option configures [Render].
type Option func(*options)

type options struct {
	style string
	width int
}

// WithStyle selects a glamour standard style ("dark", "light", "notty", ...).
// Default: chosen from the terminal background.
func WithStyle(name string) Option {
	return func(o *options) { o.style = name }
}

// WithWidth sets the word-wrap width. Default [DefaultWidth].
func WithWidth(n int) Option {
	return func(o *options) { o.width = n }
}

// Render styles a Markdown document for the terminal.
func Render(markdown string, opts ...Option) (string, error) {
	o := options{width: DefaultWidth}
	for _, opt := range opts {
		opt(&o)
	}
	ropts := []glamour.TermRendererOption{glamour.WithWordWrap(o.width)}
	if o.style != "" {
		ropts = append(ropts, glamour.WithStandardStyle(o.style))
	} else {
		ropts = append(ropts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(ropts...)
	if err != nil {
		return "", fmt.Errorf("dashboard: create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("dashboard: render: %w", err)
	}
	return out, nil
}

// Sentiment labels a 0-100 fear and greed index: above 75 is greed, above
// 50 neutral, anything else fear.
func Sentiment(index int) string {
	switch {
	case index > 75:
		return "Greed"
	case index > 50:
		return "Neutral"
	default:
		return "Fear"
	}
}

// SignedPct renders pct with an explicit sign and two decimals, e.g. "+2.50%".
func SignedPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}
