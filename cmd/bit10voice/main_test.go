package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/bit10voice/internal/config"
)

func TestConfigFlagsLoad_Defaults(t *testing.T) {
	t.Setenv("BIT10_LISTEN_ADDR", ":9999")

	c := configFlags{envFile: filepath.Join(t.TempDir(), "missing.env")}
	cfg, _, err := c.load()
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want the environment override", cfg.Server.ListenAddr)
	}
	if cfg.Market.Limit != config.DefaultMarketLimit {
		t.Errorf("Market.Limit = %d, want %d", cfg.Market.Limit, config.DefaultMarketLimit)
	}
}

func TestConfigFlagsLoad_MissingFile(t *testing.T) {
	c := configFlags{
		configPath: filepath.Join(t.TempDir(), "nope.yaml"),
		envFile:    filepath.Join(t.TempDir(), "missing.env"),
	}
	_, _, err := c.load()
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("load() error = %v, want a not-found hint", err)
	}
}

func TestConfigFlagsLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("market:\n  limit: 5\n  summary: computed\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := configFlags{configPath: path, envFile: filepath.Join(dir, "missing.env")}
	cfg, _, err := c.load()
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Market.Limit != 5 || cfg.Market.Summary != config.SummaryComputed {
		t.Errorf("market = %+v, want limit 5 and computed summary", cfg.Market)
	}
}
