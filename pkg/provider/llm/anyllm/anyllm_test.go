package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/bit10voice/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name, provider, model string
	}{
		{"empty provider", "", "m"},
		{"empty model", "openai", ""},
		{"unsupported provider", "fakecloud", "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.provider, tt.model, anyllmlib.WithAPIKey("dummy")); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNew_Backends(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "ollama", "OpenAI"} {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, "some-model", anyllmlib.WithAPIKey("sk-test"))
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			if p.model != "some-model" {
				t.Errorf("model = %q, want some-model", p.model)
			}
		})
	}
}

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "gpt-4o-mini"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are the BIT10 assistant.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "what is staking?"}},
		Temperature:  0.3,
		MaxTokens:    120,
	})

	if params.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first role = %q, want system", params.Messages[0].Role)
	}
	if got := params.Messages[1].ContentString(); got != "what is staking?" {
		t.Errorf("user content = %q", got)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 120 {
		t.Errorf("MaxTokens = %v, want 120", params.MaxTokens)
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "m"}
	params := p.buildParams(llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if len(params.Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1 (no system prompt)", len(params.Messages))
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Error("zero temperature and max tokens should be left unset")
	}
}
