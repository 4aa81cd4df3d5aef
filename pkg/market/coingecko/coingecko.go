// Package coingecko provides a market.Provider backed by the public CoinGecko
// REST API (https://www.coingecko.com/api/documentation).
//
// Three endpoints are used:
//
//   - /coins/markets for the ranked list with 7-day sparklines
//   - /coins/{id} for a single coin record
//   - /simple/price for flat quotes of a fixed id set
//
// All figures are requested in USD.
package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const (
	vsCurrency     = "usd"
	apiKeyHeader   = "x-cg-demo-api-key"
	defaultTimeout = 10 * time.Second
)

var _ market.Provider = (*Provider)(nil)

// Option is a functional option for configuring the CoinGecko Provider.
type Option func(*Provider)

// WithBaseURL overrides the API root (e.g., the pro endpoint or a test server).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the demo API key sent with every request.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithTimeout sets the per-request HTTP timeout. A zero or negative value
// disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d < 0 {
			d = 0
		}
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements market.Provider against CoinGecko. Safe for concurrent use.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a CoinGecko Provider with the given options applied.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// marketsEntry is one element of the /coins/markets response.
type marketsEntry struct {
	market.Asset
	SparklineIn7d struct {
		Price []decimal.Decimal `json:"price"`
	} `json:"sparkline_in_7d"`
}

// Markets implements market.Provider.
func (p *Provider) Markets(ctx context.Context, limit int) ([]market.Asset, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("coingecko: limit must be positive, got %d", limit)
	}
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("page", "1")
	q.Set("sparkline", "true")

	var entries []marketsEntry
	if err := p.getJSON(ctx, "/coins/markets", q, &entries); err != nil {
		return nil, err
	}
	assets := make([]market.Asset, 0, len(entries))
	for _, e := range entries {
		a := e.Asset
		a.Sparkline = e.SparklineIn7d.Price
		assets = append(assets, a)
	}
	return assets, nil
}

// Coin implements market.Provider. The nested market_data block is resolved
// with JSONPath so that absent sub-objects yield zero values instead of
// decode failures.
func (p *Provider) Coin(ctx context.Context, id string) (market.Asset, error) {
	if id == "" {
		return market.Asset{}, errors.New("coingecko: id must not be empty")
	}
	body, err := p.get(ctx, "/coins/"+url.PathEscape(id), nil)
	if err != nil {
		return market.Asset{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return market.Asset{}, fmt.Errorf("coingecko: decode coin %q: %w", id, err)
	}

	a := market.Asset{
		ID:     lookupString(doc, "$.id"),
		Symbol: lookupString(doc, "$.symbol"),
		Name:   lookupString(doc, "$.name"),
		Image:  lookupString(doc, "$.image.large"),
	}
	if a.ID == "" {
		return market.Asset{}, fmt.Errorf("coingecko: coin %q: %w", id, market.ErrNotFound)
	}
	a.Price = lookupDecimal(doc, "$.market_data.current_price.usd")
	a.MarketCap = lookupDecimal(doc, "$.market_data.market_cap.usd")
	a.Volume24h = lookupDecimal(doc, "$.market_data.total_volume.usd")
	a.Change24h = lookupDecimal(doc, "$.market_data.price_change_percentage_24h").InexactFloat64()
	return a, nil
}

// SimplePrice implements market.Provider.
func (p *Provider) SimplePrice(ctx context.Context, ids []string) (map[string]market.Quote, error) {
	if len(ids) == 0 {
		return map[string]market.Quote{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vsCurrency)
	q.Set("include_24hr_change", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_market_cap", "true")

	out := make(map[string]market.Quote, len(ids))
	if err := p.getJSON(ctx, "/simple/price", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	body, err := p.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("coingecko: decode %s: %w", path, err)
	}
	return nil
}

func (p *Provider) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := p.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set(apiKeyHeader, p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: read %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("coingecko: GET %s: %w", path, market.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("coingecko: GET %s: unexpected status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// lookup evaluates a JSONPath expression and unwraps single-element results.
func lookup(doc any, path string) any {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		v = list[0]
	}
	return v
}

func lookupString(doc any, path string) string {
	s, _ := lookup(doc, path).(string)
	return s
}

func lookupDecimal(doc any, path string) decimal.Decimal {
	switch v := lookup(doc, path).(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
