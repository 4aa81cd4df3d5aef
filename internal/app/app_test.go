package app_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/bit10voice/internal/app"
	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/pkg/market"
	marketmock "github.com/MrWong99/bit10voice/pkg/market/mock"
	llmmock "github.com/MrWong99/bit10voice/pkg/provider/llm/mock"
	sttmock "github.com/MrWong99/bit10voice/pkg/provider/stt/mock"
	ttsmock "github.com/MrWong99/bit10voice/pkg/provider/tts/mock"
)

// testConfig returns the default config listening on an ephemeral port.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	return cfg
}

// testMarket returns an upstream with two assets and matching quotes.
func testMarket() *marketmock.Provider {
	btc := market.Asset{
		ID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
		Price: decimal.NewFromInt(43250), Change24h: 2.5,
		MarketCap: decimal.NewFromInt(845_000_000_000),
	}
	eth := market.Asset{
		ID: "ethereum", Symbol: "eth", Name: "Ethereum",
		Price: decimal.NewFromInt(2650), Change24h: -1.2,
		MarketCap: decimal.NewFromInt(318_000_000_000),
	}
	return &marketmock.Provider{
		MarketsResult: []market.Asset{btc, eth},
		CoinResult:    map[string]market.Asset{"bitcoin": btc, "ethereum": eth},
		SimplePriceResult: map[string]market.Quote{
			"bitcoin":  {Price: btc.Price, Change24h: btc.Change24h},
			"ethereum": {Price: eth.Price, Change24h: eth.Change24h},
		},
	}
}

// testProviders returns mock providers for every voice stage.
func testProviders() *app.Providers {
	return &app.Providers{
		LLM: &llmmock.Provider{},
		STT: &sttmock.Provider{},
		TTS: &ttsmock.Provider{},
	}
}

func newApp(t *testing.T, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithMarketProvider(testMarket())}, opts...)
	application, err := app.New(context.Background(), testConfig(), testProviders(), opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Shutdown(ctx)
	})
	return application
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	application := newApp(t)
	if application.Handler() == nil {
		t.Fatal("Handler() = nil")
	}
	if application.Store() == nil {
		t.Fatal("Store() = nil")
	}
	if application.Interpreter() == nil {
		t.Fatal("Interpreter() = nil")
	}
}

func TestNew_NoProviders(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(), nil, app.WithMarketProvider(testMarket()))
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer application.Shutdown(context.Background())

	// Without an LLM the interpreter still answers known intents.
	got := application.Interpreter().Answer(context.Background(), "What is the Bitcoin price?")
	if !strings.Contains(got.Text, "Bitcoin") {
		t.Errorf("answer = %q, want it to mention Bitcoin", got.Text)
	}
}

func TestHandler_Routes(t *testing.T) {
	t.Parallel()

	application := newApp(t)
	if err := application.Store().Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	srv := httptest.NewServer(application.Handler())
	defer srv.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/state", http.StatusOK},
		{"/api/assets", http.StatusOK},
		{"/api/assets/bitcoin", http.StatusOK},
		{"/api/assets/nope", http.StatusNotFound},
		{"/api/summary", http.StatusOK},
		{"/api/bit10", http.StatusOK},
		{"/api/portfolio", http.StatusOK},
		{"/api/voice", http.StatusOK},
		{"/api/voice/conversation/signed-url", http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tc.path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("GET %s status = %d, want %d", tc.path, resp.StatusCode, tc.want)
			}
		})
	}
}

func TestHandler_NotReadyBeforeRefresh(t *testing.T) {
	t.Parallel()

	application := newApp(t)
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	application := newApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	// Second call is a no-op.
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	upstream := testMarket()
	application, err := app.New(context.Background(), testConfig(), testProviders(), app.WithMarketProvider(upstream))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Run refreshes immediately.
	deadline := time.Now().Add(5 * time.Second)
	for application.Store().Snapshot().UpdatedAt.IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("store was not refreshed within 5s")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

func TestApp_RunListenError(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.ListenAddr = "256.0.0.1:bad"
	application, err := app.New(context.Background(), cfg, nil, app.WithMarketProvider(testMarket()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer application.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Run(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want a listen error", err)
	}
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()

	level := new(slog.LevelVar)
	application := newApp(t, app.WithLevelVar(level))

	old := application.Config()
	next := testConfig()
	next.Server.LogLevel = config.LogDebug
	next.Market.RefreshInterval = 5 * time.Minute

	application.ApplyConfig(old, next)

	if got := level.Level(); got != slog.LevelDebug {
		t.Errorf("log level = %v, want %v", got, slog.LevelDebug)
	}
	if got := application.Store().RefreshInterval(); got != 5*time.Minute {
		t.Errorf("refresh interval = %v, want 5m", got)
	}
	if application.Config() != next {
		t.Error("Config() did not return the applied config")
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := app.SlogLevel(tc.in); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
