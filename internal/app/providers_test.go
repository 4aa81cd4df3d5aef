package app

import (
	"errors"
	"testing"

	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/resilience"
	"github.com/MrWong99/bit10voice/pkg/provider/llm"
	llmmock "github.com/MrWong99/bit10voice/pkg/provider/llm/mock"
	"github.com/MrWong99/bit10voice/pkg/provider/stt"
	sttmock "github.com/MrWong99/bit10voice/pkg/provider/stt/mock"
	"github.com/MrWong99/bit10voice/pkg/provider/tts"
	ttsmock "github.com/MrWong99/bit10voice/pkg/provider/tts/mock"
)

func mockRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.RegisterLLM("mockllm", func(config.ProviderEntry) (llm.Provider, error) { return &llmmock.Provider{}, nil })
	reg.RegisterSTT("mockstt", func(config.ProviderEntry) (stt.Provider, error) { return &sttmock.Provider{}, nil })
	reg.RegisterTTS("mocktts", func(config.ProviderEntry) (tts.Provider, error) { return &ttsmock.Provider{}, nil })
	reg.RegisterTTS("broken", func(config.ProviderEntry) (tts.Provider, error) { return nil, errors.New("no key") })
	return reg
}

func TestBuildProviders(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.LLM = config.ProviderEntry{Name: "mockllm"}
	cfg.Providers.STT = config.ProviderEntry{Name: "mockstt"}
	cfg.Providers.TTS = config.ProviderEntry{Name: "unknown"}

	ps, err := BuildProviders(cfg, mockRegistry(), observe.DefaultMetrics())
	if err != nil {
		t.Fatalf("BuildProviders() error: %v", err)
	}
	if _, ok := ps.LLM.(*llmmock.Provider); !ok {
		t.Errorf("LLM = %T, want *mock.Provider", ps.LLM)
	}
	if _, ok := ps.STT.(*sttmock.Provider); !ok {
		t.Errorf("STT = %T, want *mock.Provider", ps.STT)
	}
	if ps.TTS != nil {
		t.Errorf("TTS = %T, want nil for an unregistered provider", ps.TTS)
	}
	if ps.Breakers != nil {
		t.Error("Breakers should be nil without fallbacks")
	}
}

func TestBuildProviders_Fallbacks(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.STT = config.ProviderEntry{Name: "mockstt"}
	cfg.Providers.Fallbacks.STT = []config.ProviderEntry{{Name: "mockstt"}}
	cfg.Providers.LLM = config.ProviderEntry{Name: "mockllm"}
	cfg.Providers.Fallbacks.LLM = []config.ProviderEntry{{Name: "mockllm"}}

	ps, err := BuildProviders(cfg, mockRegistry(), observe.DefaultMetrics())
	if err != nil {
		t.Fatalf("BuildProviders() error: %v", err)
	}
	if _, ok := ps.STT.(*resilience.STTFallback); !ok {
		t.Errorf("STT = %T, want *resilience.STTFallback", ps.STT)
	}
	if _, ok := ps.LLM.(*resilience.LLMFallback); !ok {
		t.Errorf("LLM = %T, want *resilience.LLMFallback", ps.LLM)
	}
	if ps.Breakers == nil {
		t.Fatal("Breakers = nil, want a state reporter")
	}
	states := ps.Breakers()
	for _, name := range []string{"stt/mockstt", "llm/mockllm"} {
		if st, ok := states[name]; !ok || st != resilience.StateClosed {
			t.Errorf("states[%q] = %v, %v; want closed", name, st, ok)
		}
	}
}

func TestBuildProviders_FactoryError(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.TTS = config.ProviderEntry{Name: "broken"}

	if _, err := BuildProviders(cfg, mockRegistry(), nil); err == nil {
		t.Fatal("expected an error from a failing factory")
	}
}

func TestBuildProviders_FallbackNotRegistered(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Providers.TTS = config.ProviderEntry{Name: "mocktts"}
	cfg.Providers.Fallbacks.TTS = []config.ProviderEntry{{Name: "missing"}}

	_, err := BuildProviders(cfg, mockRegistry(), nil)
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegisterBuiltinProviders(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	RegisterBuiltinProviders(reg)
	names := reg.Names()

	for kind, known := range config.ValidProviderNames {
		got := make(map[string]bool, len(names[kind]))
		for _, n := range names[kind] {
			got[n] = true
		}
		for _, n := range known {
			if !got[n] {
				t.Errorf("%s provider %q is not registered", kind, n)
			}
		}
	}

	// Factories validate their credentials.
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "deepgram"}); err == nil {
		t.Error("deepgram without an API key should fail")
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "elevenlabs"}); err == nil {
		t.Error("elevenlabs without an API key should fail")
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "deepgram", APIKey: "k", Options: map[string]any{"keyword_boost": 2}}); err != nil {
		t.Errorf("deepgram with key: %v", err)
	}
}

func TestOptHelpers(t *testing.T) {
	t.Parallel()

	opts := map[string]any{
		"s":   "pcm_16000",
		"i":   3,
		"f":   1.5,
		"str": "2.5",
		"bad": "x",
	}

	if got := optString(opts, "s"); got != "pcm_16000" {
		t.Errorf("optString(s) = %q", got)
	}
	if got := optString(opts, "i"); got != "" {
		t.Errorf("optString(i) = %q, want empty", got)
	}
	if got := optString(nil, "s"); got != "" {
		t.Errorf("optString(nil) = %q, want empty", got)
	}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"i", 3, true},
		{"f", 1.5, true},
		{"str", 2.5, true},
		{"bad", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range tests {
		got, ok := optFloat(opts, tc.key)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("optFloat(%q) = %v, %v; want %v, %v", tc.key, got, ok, tc.want, tc.wantOK)
		}
	}
	if n, ok := optInt(opts, "i"); !ok || n != 3 {
		t.Errorf("optInt(i) = %d, %v", n, ok)
	}
}

func TestApplyConfig_SwapsVoice(t *testing.T) {
	t.Parallel()

	sttProvider := &sttmock.Provider{StartStreamErr: errors.New("stop here")}
	cfg := config.Default()
	a := &App{cfg: cfg, providers: &Providers{STT: sttProvider}, metrics: observe.DefaultMetrics()}
	a.capture = &liveCapture{}
	a.capture.set(newCapture(sttProvider, cfg.Voice, a.metrics))

	next := config.Default()
	next.Voice.Language = "de-DE"
	a.ApplyConfig(cfg, next)

	if got := a.capture.current.Load().Config().Language; got != "de-DE" {
		t.Errorf("capture language = %q, want de-DE", got)
	}
	if got := a.capture.current.Load().Config().Keywords; len(got) == 0 {
		t.Error("capture keywords are empty")
	}
}
