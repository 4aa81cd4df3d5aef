package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Env holds the credentials and overrides read from the process environment
// (and an optional .env file). Non-empty values take precedence over the
// YAML file.
type Env struct {
	XIAPIKey          string `env:"XI_API_KEY" env-description:"ElevenLabs API key for speech synthesis and managed conversations"`
	ElevenLabsAgentID string `env:"ELEVENLABS_AGENT_ID" env-description:"ElevenLabs Conversational AI agent id"`
	DeepgramAPIKey    string `env:"DEEPGRAM_API_KEY" env-description:"Deepgram API key for speech recognition"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" env-description:"OpenAI API key for fallback answers"`
	CoinGeckoAPIKey   string `env:"COINGECKO_API_KEY" env-description:"CoinGecko demo API key"`
	RedisAddr         string `env:"REDIS_ADDR" env-description:"Redis host:port for the response cache"`
	ListenAddr        string `env:"BIT10_LISTEN_ADDR" env-description:"HTTP listen address"`
	LogLevel          string `env:"BIT10_LOG_LEVEL" env-description:"log level: debug, info, warn or error"`
}

// LoadEnv loads the given .env files (default ".env") into the process
// environment and reads [Env] from it. Missing files are not an error;
// variables already set in the environment are not overwritten.
func LoadEnv(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("config: load .env: %w", err)
		}
		slog.Debug("no .env file found, reading from environment variables")
	}
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("config: read environment: %w", err)
	}
	return env, nil
}

// EnvUsage returns a description of the recognised environment variables.
func EnvUsage() string {
	var env Env
	text, err := cleanenv.GetDescription(&env, nil)
	if err != nil {
		return ""
	}
	return text
}

// Apply overlays e onto cfg. Listen address and log level replace the YAML
// values; credentials fill the providers they belong to.
func (e Env) Apply(cfg *Config) {
	if e.ListenAddr != "" {
		cfg.Server.ListenAddr = e.ListenAddr
	}
	if e.LogLevel != "" {
		cfg.Server.LogLevel = LogLevel(e.LogLevel)
	}
	if e.RedisAddr != "" {
		cfg.Cache.RedisAddr = e.RedisAddr
	}

	if e.XIAPIKey != "" {
		cfg.ConvAI.APIKey = e.XIAPIKey
	}
	if e.ElevenLabsAgentID != "" {
		cfg.ConvAI.AgentID = e.ElevenLabsAgentID
	}

	credentials := map[string]string{
		"elevenlabs": e.XIAPIKey,
		"deepgram":   e.DeepgramAPIKey,
		"openai":     e.OpenAIAPIKey,
	}
	fill := func(p *ProviderEntry) {
		if key := credentials[p.Name]; key != "" {
			p.APIKey = key
		}
	}
	fill(&cfg.Providers.LLM)
	fill(&cfg.Providers.STT)
	fill(&cfg.Providers.TTS)
	for _, list := range [][]ProviderEntry{cfg.Providers.Fallbacks.LLM, cfg.Providers.Fallbacks.STT, cfg.Providers.Fallbacks.TTS} {
		for i := range list {
			fill(&list[i])
		}
	}

	// A Deepgram or ElevenLabs key alone is enough to enable that stage.
	if cfg.Providers.STT.Name == "" && e.DeepgramAPIKey != "" {
		cfg.Providers.STT = ProviderEntry{Name: "deepgram", APIKey: e.DeepgramAPIKey}
	}
	if cfg.Providers.TTS.Name == "" && e.XIAPIKey != "" {
		cfg.Providers.TTS = ProviderEntry{Name: "elevenlabs", APIKey: e.XIAPIKey}
	}

	if e.CoinGeckoAPIKey != "" {
		if len(cfg.Market.Endpoints) == 0 {
			cfg.Market.Endpoints = []MarketEndpoint{{Name: "coingecko"}}
		}
		for i := range cfg.Market.Endpoints {
			if cfg.Market.Endpoints[i].APIKey == "" {
				cfg.Market.Endpoints[i].APIKey = e.CoinGeckoAPIKey
			}
		}
	}
}
