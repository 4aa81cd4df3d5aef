package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/resilience"
	"github.com/MrWong99/bit10voice/pkg/provider/llm"
	"github.com/MrWong99/bit10voice/pkg/provider/llm/anyllm"
	"github.com/MrWong99/bit10voice/pkg/provider/llm/openai"
	"github.com/MrWong99/bit10voice/pkg/provider/stt"
	"github.com/MrWong99/bit10voice/pkg/provider/stt/deepgram"
	"github.com/MrWong99/bit10voice/pkg/provider/tts"
	"github.com/MrWong99/bit10voice/pkg/provider/tts/elevenlabs"
)

// Providers holds one interface value per voice pipeline stage. Nil means
// the stage is not configured.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
	TTS tts.Provider

	// Breakers reports the circuit-breaker states of every provider that
	// sits behind a fallback group, keyed by "<kind>/<name>".
	Breakers func() map[string]resilience.State
}

// RegisterBuiltinProviders wires all built-in provider factories into reg.
func RegisterBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if n, ok := optInt(entry.Options, "max_retries"); ok {
			opts = append(opts, openai.WithMaxRetries(n))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining hosted backends share the same pattern: optional APIKey
	// and optional BaseURL.
	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		if boost, ok := optFloat(entry.Options, "keyword_boost"); ok {
			opts = append(opts, deepgram.WithKeywordBoost(boost))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────
	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if voice := optString(entry.Options, "voice_id"); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		if entry.BaseURL != "" {
			wsBase := optString(entry.Options, "ws_base_url")
			if wsBase == "" {
				wsBase = "ws" + strings.TrimPrefix(entry.BaseURL, "http")
			}
			opts = append(opts, elevenlabs.WithBaseURLs(wsBase, entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	for kind, names := range reg.Names() {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// BuildProviders instantiates the providers named in cfg using reg. When a
// stage lists fallbacks, the primary and its fallbacks are combined into a
// circuit-breaking fallback group. A primary whose name is not registered
// leaves the stage disabled.
func BuildProviders(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*Providers, error) {
	ps := &Providers{}
	fb := fallbackConfig(cfg.Market.Breaker, metrics)
	var groups []func() map[string]resilience.State

	llmProvider, err := buildStage(reg.CreateLLM, "llm", cfg.Providers.LLM, cfg.Providers.Fallbacks.LLM,
		func(primary llm.Provider, name string) (llm.Provider, func(string, llm.Provider), func() map[string]resilience.State) {
			g := resilience.NewLLMFallback(primary, name, fb)
			return g, g.AddFallback, g.States
		}, &groups)
	if err != nil {
		return nil, err
	}
	ps.LLM = llmProvider

	sttProvider, err := buildStage(reg.CreateSTT, "stt", cfg.Providers.STT, cfg.Providers.Fallbacks.STT,
		func(primary stt.Provider, name string) (stt.Provider, func(string, stt.Provider), func() map[string]resilience.State) {
			g := resilience.NewSTTFallback(primary, name, fb)
			return g, g.AddFallback, g.States
		}, &groups)
	if err != nil {
		return nil, err
	}
	ps.STT = sttProvider

	ttsProvider, err := buildStage(reg.CreateTTS, "tts", cfg.Providers.TTS, cfg.Providers.Fallbacks.TTS,
		func(primary tts.Provider, name string) (tts.Provider, func(string, tts.Provider), func() map[string]resilience.State) {
			g := resilience.NewTTSFallback(primary, name, fb)
			return g, g.AddFallback, g.States
		}, &groups)
	if err != nil {
		return nil, err
	}
	ps.TTS = ttsProvider

	if len(groups) > 0 {
		ps.Breakers = func() map[string]resilience.State {
			out := make(map[string]resilience.State)
			for _, states := range groups {
				for name, st := range states() {
					out[name] = st
				}
			}
			return out
		}
	}
	return ps, nil
}

// buildStage creates the primary provider of one kind and, when fallbacks
// are configured, wraps it in a fallback group built by wrap.
func buildStage[T any](
	create func(config.ProviderEntry) (T, error),
	kind string,
	primary config.ProviderEntry,
	fallbacks []config.ProviderEntry,
	wrap func(primary T, name string) (T, func(string, T), func() map[string]resilience.State),
	groups *[]func() map[string]resilience.State,
) (T, error) {
	var zero T
	if primary.Name == "" {
		return zero, nil
	}
	p, err := create(primary)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not registered, stage disabled", "kind", kind, "name", primary.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("app: create %s provider %q: %w", kind, primary.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", primary.Name, "model", primary.Model)
	if len(fallbacks) == 0 {
		return p, nil
	}

	group, add, states := wrap(p, kind+"/"+primary.Name)
	for _, entry := range fallbacks {
		fp, err := create(entry)
		if err != nil {
			return zero, fmt.Errorf("app: create %s fallback %q: %w", kind, entry.Name, err)
		}
		add(kind+"/"+entry.Name, fp)
		slog.Info("fallback provider added", "kind", kind, "name", entry.Name)
	}
	*groups = append(*groups, states)
	return group, nil
}

// fallbackConfig maps breaker tuning onto a resilience config whose state
// changes are logged and counted.
func fallbackConfig(b config.BreakerConfig, metrics *observe.Metrics) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  b.MaxFailures,
			ResetTimeout: b.ResetTimeout,
			HalfOpenMax:  b.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
				if metrics != nil {
					metrics.RecordBreakerTransition(context.Background(), name, to.String())
				}
			},
		},
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optFloat extracts a number from a provider Options map. YAML decodes
// integers as int, so both are accepted, as are numeric strings.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// optInt is optFloat truncated to an int.
func optInt(opts map[string]any, key string) (int, bool) {
	f, ok := optFloat(opts, key)
	return int(f), ok
}
