// Package interpreter turns a spoken question into a spoken answer.
//
// A transcript is normalised, optionally corrected against the tracked asset
// names, classified into an [Intent] and answered from live market data, the
// user's portfolio, fixed product copy, or an LLM. Interpret never fails:
// every data problem degrades to a fixed sentence.
package interpreter

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/internal/transcript"
	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/MrWong99/bit10voice/pkg/provider/llm"
	"go.opentelemetry.io/otel/metric"
)

// Quoter fetches simple-price snapshots. *marketdata.Client satisfies it.
type Quoter interface {
	Quotes(ctx context.Context, ids []string) (map[string]market.Quote, error)
}

// PortfolioSource reports the current valuation. The boolean is false when
// the user has no holdings.
type PortfolioSource interface {
	Valuation() (portfolio.Valuation, bool)
}

// Answer is the outcome of interpreting one transcript.
type Answer struct {
	Intent Intent `json:"intent"`

	// AssetID is set for IntentAsset.
	AssetID string `json:"asset_id,omitempty"`

	// Heard is the transcript after normalisation and correction.
	Heard string `json:"heard"`

	Corrections []transcript.Correction `json:"corrections,omitempty"`

	Text string `json:"text"`
}

// Option configures an [Interpreter].
type Option func(*Interpreter)

// WithPortfolio answers portfolio questions from src instead of fixed copy.
func WithPortfolio(src PortfolioSource) Option {
	return func(in *Interpreter) { in.portfolio = src }
}

// WithLLM answers unmatched questions with p.
func WithLLM(p llm.Provider) Option {
	return func(in *Interpreter) { in.llm = p }
}

// WithCorrector rewrites misheard asset names before classification.
func WithCorrector(c *transcript.Corrector) Option {
	return func(in *Interpreter) { in.corrector = c }
}

// WithMetrics records intents and latency on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(in *Interpreter) { in.metrics = m }
}

// WithLLMTimeout bounds a single LLM completion. Default 15s.
func WithLLMTimeout(d time.Duration) Option {
	return func(in *Interpreter) { in.llmTimeout = d }
}

// Interpreter answers spoken questions. It is safe for concurrent use.
type Interpreter struct {
	quotes     Quoter
	portfolio  PortfolioSource
	llm        llm.Provider
	corrector  *transcript.Corrector
	metrics    *observe.Metrics
	llmTimeout time.Duration
}

// New returns an Interpreter reading prices from q.
func New(q Quoter, opts ...Option) *Interpreter {
	in := &Interpreter{quotes: q, llmTimeout: 15 * time.Second}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Interpret returns the spoken answer to text.
func (in *Interpreter) Interpret(ctx context.Context, text string) string {
	return in.Answer(ctx, text).Text
}

// Answer interprets text and reports how it was understood.
func (in *Interpreter) Answer(ctx context.Context, text string) Answer {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "interpreter.answer")
	defer span.End()

	ans := in.answer(ctx, text)

	span.SetAttributes(observe.Attr("intent", string(ans.Intent)))
	if in.metrics != nil {
		in.metrics.RecordIntent(ctx, string(ans.Intent))
		in.metrics.InterpretDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("intent", string(ans.Intent))))
	}
	observe.Logger(ctx).Debug("interpreter: answered", "intent", ans.Intent, "heard", ans.Heard)
	return ans
}

func (in *Interpreter) answer(ctx context.Context, text string) Answer {
	if strings.TrimSpace(text) == "" {
		return Answer{Intent: IntentEmpty, Text: replyEmpty}
	}

	heard := Normalize(text)
	var corrections []transcript.Correction
	if in.corrector != nil {
		heard, corrections = in.corrector.Correct(heard)
	}
	intent, asset := Classify(heard)
	ans := Answer{Intent: intent, AssetID: asset.ID, Heard: heard, Corrections: corrections}

	switch intent {
	case IntentSummary:
		ans.Text = in.summary(ctx)
	case IntentAsset:
		ans.Text = in.asset(ctx, asset)
	case IntentPortfolio:
		ans.Text = in.portfolioReply()
	case IntentBIT10:
		ans.Text = replyBIT10
	default:
		ans.Text = in.fallback(ctx, text)
	}
	return ans
}

func (in *Interpreter) summary(ctx context.Context) string {
	quotes, err := in.quotes.Quotes(ctx, trackedIDs())
	if err != nil {
		observe.Logger(ctx).Warn("interpreter: market summary unavailable", "err", err)
		return replySummaryUnavailable
	}
	return renderSummary(quotes)
}

func (in *Interpreter) asset(ctx context.Context, a Asset) string {
	quotes, err := in.quotes.Quotes(ctx, trackedIDs())
	if err != nil {
		observe.Logger(ctx).Warn("interpreter: asset quote unavailable", "id", a.ID, "err", err)
		return staleAsset(a)
	}
	q, ok := quotes[a.ID]
	if !ok {
		return staleAsset(a)
	}
	return renderAsset(a, q)
}

func (in *Interpreter) portfolioReply() string {
	if in.portfolio == nil {
		return replyPortfolio
	}
	v, ok := in.portfolio.Valuation()
	if !ok {
		return replyPortfolio
	}
	return renderPortfolio(v)
}

func (in *Interpreter) fallback(ctx context.Context, text string) string {
	if in.llm == nil {
		return replyGreeting
	}
	ctx, cancel := context.WithTimeout(ctx, in.llmTimeout)
	defer cancel()

	start := time.Now()
	resp, err := in.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature:  0.4,
		MaxTokens:    200,
	})
	if in.metrics != nil {
		in.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		in.metrics.RecordProviderRequest(ctx, "llm", "llm", status)
	}
	if err != nil {
		observe.Logger(ctx).Warn("interpreter: llm fallback failed", "err", err)
		return replyGreeting
	}
	if reply := strings.TrimSpace(resp.Content); reply != "" {
		return reply
	}
	return replyGreeting
}
