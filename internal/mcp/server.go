// Package mcp serves the dashboard's market data and voice answers as
// Model Context Protocol tools, using the official MCP Go SDK.
//
// Tools:
//   - "market_summary": total market cap, volume, BTC dominance, sentiment.
//   - "asset_price": a live simple-price quote for one asset id.
//   - "top_assets": the ranked asset list shown on the dashboard.
//   - "portfolio": the user's holdings priced at the current market.
//   - "ask": the voice assistant's spoken answer to a question.
//
// Results are JSON text content. Handlers are safe for concurrent use.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/bit10voice/internal/interpreter"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/pkg/market"
)

// Quoter fetches simple-price quotes. *marketdata.Client satisfies it.
type Quoter interface {
	Quotes(ctx context.Context, ids []string) (map[string]market.Quote, error)
}

// Answerer answers a question. *interpreter.Interpreter satisfies it.
type Answerer interface {
	Answer(ctx context.Context, text string) interpreter.Answer
}

// Option configures a [Server].
type Option func(*Server)

// WithQuoter enables the "asset_price" tool.
func WithQuoter(q Quoter) Option {
	return func(s *Server) { s.quoter = q }
}

// WithAnswerer enables the "ask" tool.
func WithAnswerer(a Answerer) Option {
	return func(s *Server) { s.answerer = a }
}

// WithMetrics counts tool calls on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the server version reported during initialisation.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server exposes the tools over MCP.
type Server struct {
	store    *store.Store
	quoter   Quoter
	answerer Answerer
	metrics  *observe.Metrics
	version  string

	sdk *mcpsdk.Server
}

// New builds the MCP server reading state from st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{store: st, version: "dev"}
	for _, o := range opts {
		o(s)
	}
	s.sdk = mcpsdk.NewServer(&mcpsdk.Implementation{Name: "bit10voice", Version: s.version}, nil)

	addTool(s, &mcpsdk.Tool{
		Name:        "market_summary",
		Description: "Total crypto market capitalisation, 24h volume, Bitcoin dominance and the fear and greed index.",
	}, s.marketSummary)
	addTool(s, &mcpsdk.Tool{
		Name:        "top_assets",
		Description: "The largest cryptocurrencies by market capitalisation with price and 24h change.",
	}, s.topAssets)
	addTool(s, &mcpsdk.Tool{
		Name:        "portfolio",
		Description: "The user's holdings valued at current market prices, with total value and profit or loss.",
	}, s.portfolio)
	if s.quoter != nil {
		addTool(s, &mcpsdk.Tool{
			Name:        "asset_price",
			Description: "Live USD price, 24h change, volume and market cap for one asset.",
		}, s.assetPrice)
	}
	if s.answerer != nil {
		addTool(s, &mcpsdk.Tool{
			Name:        "ask",
			Description: "Ask the BIT10 voice assistant a question and get its spoken answer as text.",
		}, s.ask)
	}
	return s
}

// SDK returns the underlying SDK server, e.g. to connect it to a custom
// transport.
func (s *Server) SDK() *mcpsdk.Server { return s.sdk }

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return s.sdk }, nil)
}

// addTool registers h under t and wraps it with metrics, logging and JSON
// encoding of the result.
func addTool[In any](s *Server, t *mcpsdk.Tool, h func(context.Context, In) (any, error)) {
	mcpsdk.AddTool(s.sdk, t, func(ctx context.Context, _ *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, any, error) {
		start := time.Now()
		out, err := h(ctx, in)
		status := "ok"
		if err != nil {
			status = "error"
		}
		if s.metrics != nil {
			s.metrics.RecordToolCall(ctx, t.Name, status)
		}
		observe.Logger(ctx).Debug("mcp: tool call", "tool", t.Name, "status", status, "duration", time.Since(start))
		if err != nil {
			return errorResult(err), nil, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, nil, fmt.Errorf("mcp: encode %s result: %w", t.Name, err)
		}
		return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}}}, nil, nil
	})
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

// ErrNoMarketData is reported while the first refresh has not completed.
var ErrNoMarketData = errors.New("market data has not been loaded yet")

type noArgs struct{}

func (s *Server) marketSummary(context.Context, noArgs) (any, error) {
	snap := s.store.Snapshot()
	if snap.Summary == nil {
		return nil, ErrNoMarketData
	}
	return snap.Summary, nil
}

type topAssetsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of assets to return; all when zero"`
}

func (s *Server) topAssets(_ context.Context, in topAssetsArgs) (any, error) {
	assets := s.store.Snapshot().Assets
	if len(assets) == 0 {
		return nil, ErrNoMarketData
	}
	if in.Limit > 0 && in.Limit < len(assets) {
		assets = assets[:in.Limit]
	}
	type row struct {
		ID        string  `json:"id"`
		Symbol    string  `json:"symbol"`
		Name      string  `json:"name"`
		Price     string  `json:"price_usd"`
		Change24h float64 `json:"change_24h_pct"`
		MarketCap string  `json:"market_cap_usd"`
	}
	rows := make([]row, len(assets))
	for i, a := range assets {
		rows[i] = row{
			ID:        a.ID,
			Symbol:    strings.ToUpper(a.Symbol),
			Name:      a.Name,
			Price:     a.Price.String(),
			Change24h: a.Change24h,
			MarketCap: a.MarketCap.String(),
		}
	}
	return rows, nil
}

func (s *Server) portfolio(context.Context, noArgs) (any, error) {
	v, ok := s.store.Valuation()
	if !ok {
		return map[string]any{"holdings": 0}, nil
	}
	return v, nil
}

type assetPriceArgs struct {
	ID string `json:"id" jsonschema:"CoinGecko asset id, for example bitcoin or ethereum"`
}

func (s *Server) assetPrice(ctx context.Context, in assetPriceArgs) (any, error) {
	id := strings.ToLower(strings.TrimSpace(in.ID))
	if id == "" {
		return nil, errors.New("id is required")
	}
	quotes, err := s.quoter.Quotes(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("price lookup failed: %w", err)
	}
	q, ok := quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrNotFound, id)
	}
	return map[string]any{"id": id, "quote": q}, nil
}

type askArgs struct {
	Question string `json:"question" jsonschema:"the question, as the user would say it"`
}

func (s *Server) ask(ctx context.Context, in askArgs) (any, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, errors.New("question is required")
	}
	return s.answerer.Answer(ctx, in.Question), nil
}
