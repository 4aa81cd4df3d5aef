package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"stt": {"deepgram"},
	"tts": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Unknown keys are rejected. An empty document yields
// the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Market
	if cfg.Market.Summary != "" && !cfg.Market.Summary.IsValid() {
		errs = append(errs, fmt.Errorf("market.summary %q is invalid; valid values: placeholder, computed", cfg.Market.Summary))
	}
	if cfg.Market.Limit > 250 {
		errs = append(errs, fmt.Errorf("market.limit %d exceeds the upstream page size of 250", cfg.Market.Limit))
	}
	names := make(map[string]int, len(cfg.Market.Endpoints))
	for i, ep := range cfg.Market.Endpoints {
		prefix := fmt.Sprintf("market.endpoints[%d]", i)
		if ep.BaseURL != "" {
			if u, err := url.Parse(ep.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("%s.base_url %q is not an absolute URL", prefix, ep.BaseURL))
			}
		}
		if prev, ok := names[ep.Name]; ok && ep.Name != "" {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of market.endpoints[%d]", prefix, ep.Name, prev))
		}
		names[ep.Name] = i
	}

	// Provider name validation: warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for kind, entries := range map[string][]ProviderEntry{
		"llm": cfg.Providers.Fallbacks.LLM,
		"stt": cfg.Providers.Fallbacks.STT,
		"tts": cfg.Providers.Fallbacks.TTS,
	} {
		for i, e := range entries {
			if e.Name == "" {
				errs = append(errs, fmt.Errorf("providers.fallbacks.%s[%d].name is required", kind, i))
			}
			validateProviderName(kind, e.Name)
		}
	}
	if len(cfg.Providers.Fallbacks.STT) > 0 && cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.fallbacks.stt is set but providers.stt is not configured"))
	}
	if len(cfg.Providers.Fallbacks.TTS) > 0 && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.fallbacks.tts is set but providers.tts is not configured"))
	}
	if len(cfg.Providers.Fallbacks.LLM) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.fallbacks.llm is set but providers.llm is not configured"))
	}

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; voice input will report speech recognition as unsupported")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; answers will be returned as text only")
	}

	// Voice
	v := cfg.Voice
	if v.Rate != 0 && (v.Rate < 0.1 || v.Rate > 10) {
		errs = append(errs, fmt.Errorf("voice.rate %.2f is out of range [0.1, 10]", v.Rate))
	}
	if v.Pitch != 0 && (v.Pitch < 0 || v.Pitch > 2) {
		errs = append(errs, fmt.Errorf("voice.pitch %.2f is out of range [0, 2]", v.Pitch))
	}
	if v.Volume < 0 || v.Volume > 1 {
		errs = append(errs, fmt.Errorf("voice.volume %.2f is out of range [0, 1]", v.Volume))
	}
	switch v.SampleRate {
	case 0, 8000, 16000, 22050, 24000, 44100, 48000:
	default:
		errs = append(errs, fmt.Errorf("voice.sample_rate %d is not supported", v.SampleRate))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
