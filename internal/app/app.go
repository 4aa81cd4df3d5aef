// Package app wires all bit10voice subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and refreshes market data until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithMarketProvider,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/bit10voice/internal/api"
	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/internal/convai"
	"github.com/MrWong99/bit10voice/internal/health"
	"github.com/MrWong99/bit10voice/internal/interpreter"
	"github.com/MrWong99/bit10voice/internal/marketdata"
	"github.com/MrWong99/bit10voice/internal/mcp"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/resilience"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/internal/transcript"
	"github.com/MrWong99/bit10voice/internal/transcript/phonetic"
	"github.com/MrWong99/bit10voice/internal/voice"
	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/MrWong99/bit10voice/pkg/market/coingecko"
	"github.com/MrWong99/bit10voice/pkg/market/rediscache"
)

// shutdownTimeout bounds the graceful HTTP shutdown inside Run.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	mu        sync.Mutex
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics
	level     *slog.LevelVar
	version   string

	// Subsystems, initialised in New and torn down in Shutdown.
	upstream  market.Provider
	fallback  *resilience.MarketFallback
	redis     *redis.Client
	market    *marketdata.Client
	store     *store.Store
	interp    *interpreter.Interpreter
	capture   *liveCapture
	output    *liveOutput
	voice     *voice.Session
	convai    *convai.Client
	health    *health.Handler
	handler   http.Handler
	server    *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMarketProvider uses p as the market upstream instead of building
// CoinGecko clients, breakers and the Redis cache from config.
func WithMarketProvider(p market.Provider) Option {
	return func(a *App) { a.upstream = p }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets [App.ApplyConfig] change the log level of the handler
// that was built around v.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. providers comes from
// [BuildProviders]; a nil value disables every voice stage.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		version:   "dev",
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Market data ───────────────────────────────────────────────────
	if err := a.initMarket(); err != nil {
		return nil, fmt.Errorf("app: init market: %w", err)
	}

	// ── 2. Dashboard store ───────────────────────────────────────────────
	a.store = store.New(a.market,
		store.WithAggregator(aggregator(cfg.Market.Summary)),
		store.WithLimit(cfg.Market.Limit),
		store.WithRefreshInterval(cfg.Market.RefreshInterval),
		store.WithMetrics(a.metrics),
	)

	// ── 3. Interpreter ───────────────────────────────────────────────────
	a.initInterpreter()

	// ── 4. Voice pipeline ────────────────────────────────────────────────
	a.initVoice()

	// ── 5. HTTP surfaces ─────────────────────────────────────────────────
	a.initHTTP()

	slog.Info("app initialised",
		"market_endpoints", len(cfg.Market.Endpoints),
		"cache", cfg.Cache.RedisAddr != "",
		"stt", providers.STT != nil,
		"tts", providers.TTS != nil,
		"llm", providers.LLM != nil,
		"convai", a.convai.Configured(),
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initMarket builds the upstream chain: CoinGecko endpoints behind circuit
// breakers, an optional Redis read-through cache, and the fallback-aware
// client on top.
func (a *App) initMarket() error {
	name := "injected"
	if a.upstream == nil {
		endpoints := a.cfg.Market.Endpoints
		if len(endpoints) == 0 {
			endpoints = []config.MarketEndpoint{{Name: "coingecko"}}
		}
		name = endpoints[0].Name

		fb := fallbackConfig(a.cfg.Market.Breaker, a.metrics)
		for i, ep := range endpoints {
			p := a.coingecko(ep)
			if i == 0 {
				a.fallback = resilience.NewMarketFallback(p, "market/"+ep.Name, fb)
				continue
			}
			a.fallback.AddFallback("market/"+ep.Name, p)
		}
		a.upstream = a.fallback

		if addr := a.cfg.Cache.RedisAddr; addr != "" {
			a.redis = redis.NewClient(&redis.Options{
				Addr:     addr,
				Password: a.cfg.Cache.RedisPassword,
				DB:       a.cfg.Cache.RedisDB,
			})
			a.closers = append(a.closers, a.redis.Close)
			a.upstream = rediscache.New(a.upstream, rediscache.RedisStore{Client: a.redis}, a.cfg.Cache.TTL)
			slog.Info("market cache enabled", "redis_addr", addr, "ttl", a.cfg.Cache.TTL)
		}
	}

	a.market = marketdata.New(a.upstream,
		marketdata.WithMetrics(a.metrics),
		marketdata.WithProviderName(name),
	)
	return nil
}

func (a *App) coingecko(ep config.MarketEndpoint) *coingecko.Provider {
	opts := []coingecko.Option{coingecko.WithTimeout(a.cfg.Market.Timeout)}
	if ep.BaseURL != "" {
		opts = append(opts, coingecko.WithBaseURL(ep.BaseURL))
	}
	if ep.APIKey != "" {
		opts = append(opts, coingecko.WithAPIKey(ep.APIKey))
	}
	return coingecko.New(opts...)
}

// initInterpreter builds the intent matcher with portfolio access, the LLM
// fallback and, unless disabled, phonetic correction of asset names.
func (a *App) initInterpreter() {
	opts := []interpreter.Option{
		interpreter.WithPortfolio(a.store),
		interpreter.WithMetrics(a.metrics),
	}
	if a.providers.LLM != nil {
		opts = append(opts, interpreter.WithLLM(a.providers.LLM))
	}
	if a.cfg.Voice.Correction() {
		opts = append(opts, interpreter.WithCorrector(newCorrector()))
	}
	a.interp = interpreter.New(a.market, opts...)
}

// newCorrector matches misheard words against the tracked asset names.
// Tickers and the product name are protected from being rewritten.
func newCorrector() *transcript.Corrector {
	vocab := make([]string, 0, len(interpreter.TrackedAssets))
	for _, asset := range interpreter.TrackedAssets {
		vocab = append(vocab, asset.Name)
	}
	return transcript.NewCorrector(phonetic.New(vocab), transcript.WithProtected(interpreter.Keywords()...))
}

// initVoice builds the voice session. The recognizer and speaker are
// swappable so voice settings can change between turns.
func (a *App) initVoice() {
	var opts []voice.Option
	if a.providers.STT != nil {
		a.capture = &liveCapture{}
		a.capture.set(newCapture(a.providers.STT, a.cfg.Voice, a.metrics))
		opts = append(opts, voice.WithRecognizer(a.capture))
	}
	if a.providers.TTS != nil {
		a.output = &liveOutput{}
		a.output.set(newOutput(a.providers.TTS, a.cfg.Voice, a.metrics))
		opts = append(opts, voice.WithSpeaker(a.output))
	}
	opts = append(opts, voice.WithMetrics(a.metrics))
	a.voice = voice.New(a.interp, a.store, opts...)
	a.closers = append(a.closers, func() error {
		a.voice.Stop()
		return nil
	})

	var convOpts []convai.Option
	if base := a.cfg.ConvAI.BaseURL; base != "" {
		convOpts = append(convOpts, convai.WithAPIBase(base))
	}
	a.convai = convai.New(a.cfg.ConvAI.APIKey, a.cfg.ConvAI.AgentID, convOpts...)
}

// initHTTP mounts the REST API, the MCP endpoint, metrics and health checks
// on one mux.
func (a *App) initHTTP() {
	in, out := audioFormats(a.cfg.Voice)
	apiServer := api.New(a.store,
		api.WithAssetLookup(a.market),
		api.WithVoice(a.voice),
		api.WithConvAI(a.convai),
		api.WithAudioFormats(in, out),
	)
	mcpServer := mcp.New(a.store,
		mcp.WithQuoter(a.market),
		mcp.WithAnswerer(a.interp),
		mcp.WithMetrics(a.metrics),
		mcp.WithVersion(a.version),
	)

	checkers := []health.Checker{
		health.Freshness("market", 3*a.cfg.Market.RefreshInterval, func() time.Time {
			return a.store.Snapshot().UpdatedAt
		}),
	}
	if states := a.breakerStates(); states != nil {
		checkers = append(checkers, health.Breakers("breakers", states))
	}
	if a.redis != nil {
		checkers = append(checkers, health.Ping("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	a.health = health.New(checkers...)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Handler())
	mux.Handle("/mcp", mcpServer.Handler())
	mux.Handle("GET /metrics", observe.MetricsHandler())
	a.health.Register(mux)
	a.handler = observe.Middleware(a.metrics)(mux)
}

// breakerStates merges the market and provider breaker states. Returns nil
// when no breakers exist.
func (a *App) breakerStates() func() map[string]resilience.State {
	var sources []func() map[string]resilience.State
	if a.fallback != nil {
		sources = append(sources, a.fallback.States)
	}
	if a.providers.Breakers != nil {
		sources = append(sources, a.providers.Breakers)
	}
	if len(sources) == 0 {
		return nil
	}
	return func() map[string]resilience.State {
		out := make(map[string]resilience.State)
		for _, states := range sources {
			for name, st := range states() {
				out[name] = st
			}
		}
		return out
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Store returns the dashboard state container.
func (a *App) Store() *store.Store { return a.store }

// Interpreter returns the question answerer.
func (a *App) Interpreter() *interpreter.Interpreter { return a.interp }

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured listen address and refreshes market data
// in the background. It blocks until ctx is cancelled or the server fails;
// on cancellation the server is shut down gracefully and ctx.Err() returned.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config()
	a.mu.Lock()
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := a.server
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.store.Run(gctx)
	})
	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			slog.Info("listening", "addr", srv.Addr, "tls", true)
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable parts of next: log level, refresh
// interval and speech settings. Changes that need a restart are logged and
// otherwise ignored. Suitable as a [config.Watcher] callback.
func (a *App) ApplyConfig(old, next *config.Config) {
	d := config.Diff(old, next)
	if d.Empty() {
		return
	}

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RefreshIntervalChanged {
		a.store.SetRefreshInterval(d.NewRefreshInterval)
		slog.Info("refresh interval changed", "interval", d.NewRefreshInterval)
	}
	if d.VoiceChanged {
		if a.capture != nil {
			a.capture.set(newCapture(a.providers.STT, next.Voice, a.metrics))
		}
		if a.output != nil {
			a.output.set(newOutput(a.providers.TTS, next.Voice, a.metrics))
		}
		slog.Info("voice settings changed; effective from the next turn")
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}

	a.mu.Lock()
	a.cfg = next
	a.mu.Unlock()
}

// SlogLevel converts a config log level to its slog equivalent. Unknown
// levels map to info.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// aggregator maps a summary mode to its aggregator.
func aggregator(mode config.SummaryMode) market.Aggregator {
	if mode == config.SummaryComputed {
		return market.ComputedAggregator{}
	}
	return market.PlaceholderAggregator{}
}
