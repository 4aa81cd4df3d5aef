package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/bit10voice/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	a := config.Default()
	b := config.Default()
	d := config.Diff(a, b)
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_HotReloadable(t *testing.T) {
	t.Parallel()
	old := config.Default()
	updated := config.Default()
	updated.Server.LogLevel = config.LogDebug
	updated.Market.RefreshInterval = 15 * time.Second
	updated.Voice.Rate = 1.2

	d := config.Diff(old, updated)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level: got changed=%v new=%q", d.LogLevelChanged, d.NewLogLevel)
	}
	if !d.RefreshIntervalChanged || d.NewRefreshInterval != 15*time.Second {
		t.Errorf("refresh interval: got changed=%v new=%v", d.RefreshIntervalChanged, d.NewRefreshInterval)
	}
	if !d.VoiceChanged {
		t.Error("expected VoiceChanged")
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired: got %v, want none", d.RestartRequired)
	}
}

func TestDiff_VoicePointerDefaults(t *testing.T) {
	t.Parallel()
	old := config.Default()
	updated := config.Default()
	on := true
	updated.Voice.InterimResults = &on

	if d := config.Diff(old, updated); d.VoiceChanged {
		t.Error("explicit true should equal the default")
	}

	off := false
	updated.Voice.PhoneticCorrection = &off
	if d := config.Diff(old, updated); !d.VoiceChanged {
		t.Error("disabling phonetic correction should be a voice change")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9999" }, "server"},
		{"tls", func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"} }, "server"},
		{"market limit", func(c *config.Config) { c.Market.Limit = 20 }, "market"},
		{"market endpoints", func(c *config.Config) {
			c.Market.Endpoints = []config.MarketEndpoint{{Name: "x", BaseURL: "https://x.example"}}
		}, "market"},
		{"cache", func(c *config.Config) { c.Cache.RedisAddr = "localhost:6379" }, "cache"},
		{"llm model", func(c *config.Config) { c.Providers.LLM = config.ProviderEntry{Name: "openai", Model: "gpt-4o"} }, "providers"},
		{"provider options", func(c *config.Config) {
			c.Providers.TTS = config.ProviderEntry{Name: "elevenlabs", Options: map[string]any{"voice_id": "x"}}
		}, "providers"},
		{"convai", func(c *config.Config) { c.ConvAI.AgentID = "agent" }, "convai"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old := config.Default()
			updated := config.Default()
			tc.mutate(updated)
			d := config.Diff(old, updated)
			if !slices.Contains(d.RestartRequired, tc.want) {
				t.Errorf("RestartRequired: got %v, want %q", d.RestartRequired, tc.want)
			}
			if d.LogLevelChanged || d.RefreshIntervalChanged || d.VoiceChanged {
				t.Errorf("unexpected hot-reload change: %+v", d)
			}
		})
	}
}

func TestDiff_SameProviderOptions(t *testing.T) {
	t.Parallel()
	old := config.Default()
	updated := config.Default()
	old.Providers.STT = config.ProviderEntry{Name: "deepgram", Options: map[string]any{"keywords": []any{"bitcoin"}}}
	updated.Providers.STT = config.ProviderEntry{Name: "deepgram", Options: map[string]any{"keywords": []any{"bitcoin"}}}

	if d := config.Diff(old, updated); !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}
