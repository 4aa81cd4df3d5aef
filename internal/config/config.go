// Package config provides the configuration schema, loader, environment
// overlay and provider registry for bit10voice.
package config

import "time"

// LogLevel controls log verbosity for the bit10voice server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SummaryMode selects how the market summary is derived on refresh.
type SummaryMode string

const (
	// SummaryPlaceholder reports fixed demonstration figures.
	SummaryPlaceholder SummaryMode = "placeholder"

	// SummaryComputed derives the figures from the fetched asset list.
	SummaryComputed SummaryMode = "computed"
)

// IsValid reports whether m is a recognised summary mode.
func (m SummaryMode) IsValid() bool {
	return m == SummaryPlaceholder || m == SummaryComputed
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultMarketLimit     = 10
	DefaultRefreshInterval = time.Minute
	DefaultMarketTimeout   = 10 * time.Second
	DefaultCacheTTL        = 30 * time.Second
	DefaultLanguage        = "en-US"
	DefaultSampleRate      = 16000
	DefaultSpeechRate      = 0.9
	DefaultSpeechPitch     = 1.0
	DefaultSpeechVolume    = 0.8
)

// Config is the root configuration structure for bit10voice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Market    MarketConfig    `yaml:"market"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Voice     VoiceConfig     `yaml:"voice"`
	ConvAI    ConvAIConfig    `yaml:"convai"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// MarketConfig configures the market-data upstreams and refresh loop.
type MarketConfig struct {
	// Endpoints are CoinGecko-compatible APIs in order of preference. When
	// empty, the public CoinGecko API is used.
	Endpoints []MarketEndpoint `yaml:"endpoints"`

	// Limit is the number of assets shown on the dashboard.
	Limit int `yaml:"limit"`

	// RefreshInterval is the period of the background refresh. Hot-reloadable.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Timeout bounds a single upstream request.
	Timeout time.Duration `yaml:"timeout"`

	// Summary selects how aggregate figures are derived.
	Summary SummaryMode `yaml:"summary"`

	// Breaker tunes the per-endpoint circuit breakers.
	Breaker BreakerConfig `yaml:"breaker"`
}

// MarketEndpoint is one CoinGecko-compatible API root.
type MarketEndpoint struct {
	// Name labels the endpoint in logs, metrics and health checks.
	Name string `yaml:"name"`

	// BaseURL is the API root, e.g. "https://api.coingecko.com/api/v3".
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as x-cg-demo-api-key when set.
	APIKey string `yaml:"api_key"`
}

// BreakerConfig holds circuit-breaker tuning. Zero values select the
// breaker defaults.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// CacheConfig configures the optional Redis response cache.
type CacheConfig struct {
	// RedisAddr is host:port of the Redis server. Empty disables caching.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates against Redis, if required.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the logical database.
	RedisDB int `yaml:"redis_db"`

	// TTL is how long upstream responses are reused.
	TTL time.Duration `yaml:"ttl"`
}

// ProvidersConfig declares which provider implementation to use for each
// voice pipeline stage. Each entry selects a named provider registered in
// the [Registry]. An entry with an empty name disables that stage.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`

	// Fallbacks are tried in order when the primary provider of the same
	// kind fails.
	Fallbacks FallbacksConfig `yaml:"fallbacks"`
}

// FallbacksConfig lists secondary providers per stage.
type FallbacksConfig struct {
	LLM []ProviderEntry `yaml:"llm"`
	STT []ProviderEntry `yaml:"stt"`
	TTS []ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini", "nova-3").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// VoiceConfig tunes speech capture and playback.
type VoiceConfig struct {
	// Language is the BCP-47 recognition language. Default "en-US".
	Language string `yaml:"language"`

	// Continuous keeps recognising after the first final transcript.
	Continuous bool `yaml:"continuous"`

	// InterimResults requests partial transcripts. Default true.
	InterimResults *bool `yaml:"interim_results"`

	// MaxAlternatives is the number of recognition hypotheses. Default 1.
	MaxAlternatives int `yaml:"max_alternatives"`

	// SampleRate is the PCM rate sent to the recogniser and expected from
	// the synthesiser. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// VoiceID selects the synthesis voice. Empty uses the provider default.
	VoiceID string `yaml:"voice_id"`

	// Rate, Pitch and Volume shape synthesis. Defaults 0.9, 1.0 and 0.8.
	Rate   float64 `yaml:"rate"`
	Pitch  float64 `yaml:"pitch"`
	Volume float64 `yaml:"volume"`

	// PhoneticCorrection rewrites misheard asset names before matching.
	// Default true.
	PhoneticCorrection *bool `yaml:"phonetic_correction"`
}

// Interim reports the effective interim-results setting.
func (v VoiceConfig) Interim() bool { return v.InterimResults == nil || *v.InterimResults }

// Correction reports the effective phonetic-correction setting.
func (v VoiceConfig) Correction() bool { return v.PhoneticCorrection == nil || *v.PhoneticCorrection }

// ConvAIConfig configures the ElevenLabs managed conversation agent.
type ConvAIConfig struct {
	// APIKey is the ElevenLabs key (XI_API_KEY).
	APIKey string `yaml:"api_key"`

	// AgentID is the Conversational AI agent (ELEVENLABS_AGENT_ID).
	AgentID string `yaml:"agent_id"`

	// BaseURL overrides https://api.elevenlabs.io.
	BaseURL string `yaml:"base_url"`
}

// ApplyDefaults fills zero-valued settings with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Market.Limit <= 0 {
		cfg.Market.Limit = DefaultMarketLimit
	}
	if cfg.Market.RefreshInterval <= 0 {
		cfg.Market.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Market.Timeout <= 0 {
		cfg.Market.Timeout = DefaultMarketTimeout
	}
	if cfg.Market.Summary == "" {
		cfg.Market.Summary = SummaryPlaceholder
	}
	for i := range cfg.Market.Endpoints {
		if cfg.Market.Endpoints[i].Name == "" {
			cfg.Market.Endpoints[i].Name = "coingecko"
		}
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	v := &cfg.Voice
	if v.Language == "" {
		v.Language = DefaultLanguage
	}
	if v.MaxAlternatives <= 0 {
		v.MaxAlternatives = 1
	}
	if v.SampleRate <= 0 {
		v.SampleRate = DefaultSampleRate
	}
	if v.Rate == 0 {
		v.Rate = DefaultSpeechRate
	}
	if v.Pitch == 0 {
		v.Pitch = DefaultSpeechPitch
	}
	if v.Volume == 0 {
		v.Volume = DefaultSpeechVolume
	}
}
