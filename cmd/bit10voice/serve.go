package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/MrWong99/bit10voice/internal/app"
	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/internal/observe"
)

type serveCmd struct {
	configFlags
	noWatch bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard API, voice stream and MCP server" }
func (*serveCmd) Usage() string {
	return `bit10voice serve [-config <file>] [-env <file>] [-no-watch]

  Serves the REST API under /api, the MCP endpoint at /mcp, Prometheus
  metrics at /metrics and health checks at /healthz and /readyz.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	c.configFlags.register(f)
	f.BoolVar(&c.noWatch, "no-watch", false, "do not hot-reload the config file")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, env, err := c.load()
	if err != nil {
		return fail(err)
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, level := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("bit10voice starting",
		"version", version,
		"config", c.configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "bit10voice",
		ServiceVersion: version,
	})
	if err != nil {
		return fail(fmt.Errorf("init telemetry: %w", err))
	}
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	app.RegisterBuiltinProviders(reg)
	providers, err := app.BuildProviders(cfg, reg, metrics)
	if err != nil {
		return fail(err)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithMetrics(metrics),
		app.WithLevelVar(level),
		app.WithVersion(version),
	)
	if err != nil {
		return fail(err)
	}

	// ── Hot reload ────────────────────────────────────────────────────────────
	if c.configPath != "" && !c.noWatch {
		w, err := config.NewWatcher(c.configPath, application.ApplyConfig, config.WithOverlay(env.Apply))
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	status := subcommands.ExitSuccess
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		status = subcommands.ExitFailure
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		status = subcommands.ExitFailure
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return status
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       bit10voice: startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	endpoints := len(cfg.Market.Endpoints)
	if endpoints == 0 {
		endpoints = 1
	}
	fmt.Printf("║  Market APIs     : %-19d ║\n", endpoints)
	cache := "(disabled)"
	if cfg.Cache.RedisAddr != "" {
		cache = cfg.Cache.RedisAddr
	}
	printRow("Redis cache", cache)
	convai := "(disabled)"
	if cfg.ConvAI.APIKey != "" && cfg.ConvAI.AgentID != "" {
		convai = "configured"
	}
	printRow("Conversation", convai)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(kind, value)
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "..."
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}
