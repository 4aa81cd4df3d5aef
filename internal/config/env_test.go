package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/bit10voice/internal/config"
)

func TestEnvApply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		env   config.Env
		start func(*config.Config)
		check func(*testing.T, *config.Config)
	}{
		{
			name: "server overrides",
			env:  config.Env{ListenAddr: ":7000", LogLevel: "warn", RedisAddr: "redis:6379"},
			check: func(t *testing.T, c *config.Config) {
				if c.Server.ListenAddr != ":7000" || c.Server.LogLevel != config.LogWarn || c.Cache.RedisAddr != "redis:6379" {
					t.Errorf("got server=%+v cache=%+v", c.Server, c.Cache)
				}
			},
		},
		{
			name: "empty values keep yaml",
			env:  config.Env{},
			start: func(c *config.Config) {
				c.Server.ListenAddr = ":1234"
			},
			check: func(t *testing.T, c *config.Config) {
				if c.Server.ListenAddr != ":1234" {
					t.Errorf("listen_addr: got %q", c.Server.ListenAddr)
				}
				if c.Providers.STT.Name != "" || c.Providers.TTS.Name != "" {
					t.Errorf("providers should stay disabled: %+v", c.Providers)
				}
			},
		},
		{
			name: "elevenlabs key enables tts and convai",
			env:  config.Env{XIAPIKey: "xi", ElevenLabsAgentID: "agent"},
			check: func(t *testing.T, c *config.Config) {
				if c.Providers.TTS.Name != "elevenlabs" || c.Providers.TTS.APIKey != "xi" {
					t.Errorf("tts: got %+v", c.Providers.TTS)
				}
				if c.ConvAI.APIKey != "xi" || c.ConvAI.AgentID != "agent" {
					t.Errorf("convai: got %+v", c.ConvAI)
				}
			},
		},
		{
			name: "deepgram key enables stt",
			env:  config.Env{DeepgramAPIKey: "dg"},
			check: func(t *testing.T, c *config.Config) {
				if c.Providers.STT.Name != "deepgram" || c.Providers.STT.APIKey != "dg" {
					t.Errorf("stt: got %+v", c.Providers.STT)
				}
			},
		},
		{
			name: "openai key fills configured llm and fallbacks",
			env:  config.Env{OpenAIAPIKey: "sk"},
			start: func(c *config.Config) {
				c.Providers.LLM = config.ProviderEntry{Name: "anthropic"}
				c.Providers.Fallbacks.LLM = []config.ProviderEntry{{Name: "openai"}}
			},
			check: func(t *testing.T, c *config.Config) {
				if c.Providers.LLM.APIKey != "" {
					t.Errorf("anthropic should not receive the openai key")
				}
				if c.Providers.Fallbacks.LLM[0].APIKey != "sk" {
					t.Errorf("fallback: got %+v", c.Providers.Fallbacks.LLM[0])
				}
			},
		},
		{
			name: "coingecko key creates endpoint",
			env:  config.Env{CoinGeckoAPIKey: "cg"},
			check: func(t *testing.T, c *config.Config) {
				if len(c.Market.Endpoints) != 1 || c.Market.Endpoints[0].APIKey != "cg" {
					t.Errorf("endpoints: got %+v", c.Market.Endpoints)
				}
			},
		},
		{
			name: "coingecko key keeps explicit endpoint keys",
			env:  config.Env{CoinGeckoAPIKey: "cg"},
			start: func(c *config.Config) {
				c.Market.Endpoints = []config.MarketEndpoint{{Name: "a", APIKey: "own"}, {Name: "b"}}
			},
			check: func(t *testing.T, c *config.Config) {
				if c.Market.Endpoints[0].APIKey != "own" || c.Market.Endpoints[1].APIKey != "cg" {
					t.Errorf("endpoints: got %+v", c.Market.Endpoints)
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			if tc.start != nil {
				tc.start(cfg)
			}
			tc.env.Apply(cfg)
			tc.check(t, cfg)
		})
	}
}

// LoadEnv mutates the process environment, so these tests do not run in
// parallel.
func TestLoadEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DEEPGRAM_API_KEY=from-file\nBIT10_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEEPGRAM_API_KEY", "")
	os.Unsetenv("DEEPGRAM_API_KEY")
	t.Setenv("BIT10_LOG_LEVEL", "error")

	env, err := config.LoadEnv(path)
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.DeepgramAPIKey != "from-file" {
		t.Errorf("DeepgramAPIKey: got %q, want from-file", env.DeepgramAPIKey)
	}
	if env.LogLevel != "error" {
		t.Errorf("process environment should win over .env, got %q", env.LogLevel)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	t.Setenv("XI_API_KEY", "xi-test")
	env, err := config.LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.XIAPIKey != "xi-test" {
		t.Errorf("XIAPIKey: got %q", env.XIAPIKey)
	}
}

func TestEnvUsage(t *testing.T) {
	t.Parallel()
	usage := config.EnvUsage()
	for _, name := range []string{"XI_API_KEY", "ELEVENLABS_AGENT_ID", "DEEPGRAM_API_KEY"} {
		if !strings.Contains(usage, name) {
			t.Errorf("usage should list %s:\n%s", name, usage)
		}
	}
}
