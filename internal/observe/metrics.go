// Package observe provides the observability primitives shared across
// bit10voice: OpenTelemetry metrics and tracing, trace-aware slog loggers, and
// HTTP middleware that ties them together.
//
// Metrics go through the OpenTelemetry Metrics API and are exposed for
// scraping by the Prometheus bridge set up in [InitProvider]. Tests should
// build their own [Metrics] with [NewMetrics] and a manual reader rather than
// use [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/bit10voice"

// Metrics holds all metric instruments for the application.
type Metrics struct {
	// MarketFetchDuration tracks upstream market-data latency by operation
	// ("markets", "coin", "simple_price").
	MarketFetchDuration metric.Float64Histogram

	// STTDuration tracks time from session start to the final transcript.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency for unmatched questions.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks time from synthesis start to the last audio chunk.
	TTSDuration metric.Float64Histogram

	// InterpretDuration tracks transcript-to-answer latency by intent.
	InterpretDuration metric.Float64Histogram

	// HTTPRequestDuration tracks API latency by method and path.
	HTTPRequestDuration metric.Float64Histogram

	// ProviderRequests counts upstream calls by provider, kind and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts upstream failures by provider and kind.
	ProviderErrors metric.Int64Counter

	// MarketFallbacks counts answers served from built-in substitute data,
	// by operation.
	MarketFallbacks metric.Int64Counter

	// Intents counts interpreted transcripts by intent.
	Intents metric.Int64Counter

	// VoiceTransitions counts voice state machine transitions by from/to.
	VoiceTransitions metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes by name/to.
	BreakerTransitions metric.Int64Counter

	// ToolCalls counts MCP tool invocations by tool and status.
	ToolCalls metric.Int64Counter

	// ActiveVoiceSessions tracks live audio capture sessions.
	ActiveVoiceSessions metric.Int64UpDownCounter

	// Holdings tracks the number of portfolio holdings.
	Holdings metric.Int64Gauge
}

// latencyBuckets are histogram boundaries in seconds, spanning cached market
// reads up to slow speech synthesis.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.MarketFetchDuration, "bit10.market.fetch.duration", "Latency of upstream market-data requests."},
		{&met.STTDuration, "bit10.stt.duration", "Latency from capture start to final transcript."},
		{&met.LLMDuration, "bit10.llm.duration", "Latency of LLM completions."},
		{&met.TTSDuration, "bit10.tts.duration", "Latency of speech synthesis."},
		{&met.InterpretDuration, "bit10.interpret.duration", "Latency of transcript interpretation."},
		{&met.HTTPRequestDuration, "bit10.http.request.duration", "HTTP request latency by method and path."},
	}
	for _, h := range histograms {
		inst, err := m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			return nil, err
		}
		*h.dst = inst
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.ProviderRequests, "bit10.provider.requests", "Upstream requests by provider, kind and status."},
		{&met.ProviderErrors, "bit10.provider.errors", "Upstream errors by provider and kind."},
		{&met.MarketFallbacks, "bit10.market.fallbacks", "Answers served from substitute market data."},
		{&met.Intents, "bit10.interpret.intents", "Interpreted transcripts by intent."},
		{&met.VoiceTransitions, "bit10.voice.transitions", "Voice state machine transitions."},
		{&met.BreakerTransitions, "bit10.breaker.transitions", "Circuit breaker state changes."},
		{&met.ToolCalls, "bit10.tool.calls", "MCP tool invocations by tool and status."},
	}
	for _, c := range counters {
		inst, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = inst
	}

	var err error
	if met.ActiveVoiceSessions, err = m.Int64UpDownCounter("bit10.voice.active_sessions",
		metric.WithDescription("Number of live audio capture sessions."),
	); err != nil {
		return nil, err
	}
	if met.Holdings, err = m.Int64Gauge("bit10.portfolio.holdings",
		metric.WithDescription("Number of portfolio holdings."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first use
// from the global meter provider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest increments ProviderRequests.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider), Attr("kind", kind), Attr("status", status)))
}

// RecordProviderError increments ProviderErrors.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider), Attr("kind", kind)))
}

// RecordMarketFallback increments MarketFallbacks for op.
func (m *Metrics) RecordMarketFallback(ctx context.Context, op string) {
	m.MarketFallbacks.Add(ctx, 1, metric.WithAttributes(Attr("op", op)))
}

// RecordIntent increments Intents.
func (m *Metrics) RecordIntent(ctx context.Context, intent string) {
	m.Intents.Add(ctx, 1, metric.WithAttributes(Attr("intent", intent)))
}

// RecordVoiceTransition increments VoiceTransitions.
func (m *Metrics) RecordVoiceTransition(ctx context.Context, from, to string) {
	m.VoiceTransitions.Add(ctx, 1, metric.WithAttributes(Attr("from", from), Attr("to", to)))
}

// RecordBreakerTransition increments BreakerTransitions.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(Attr("name", name), Attr("to", to)))
}

// RecordToolCall increments ToolCalls.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(Attr("tool", tool), Attr("status", status)))
}
