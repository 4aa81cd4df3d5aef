package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/bit10voice/pkg/provider/tts"
	ttsmock "github.com/MrWong99/bit10voice/pkg/provider/tts/mock"
)

func TestTTSFallback_SynthesizeStream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		primaryErr error
		wantAudio  string
	}{
		{name: "primary healthy", wantAudio: "primary"},
		{name: "failover", primaryErr: errors.New("quota exceeded"), wantAudio: "secondary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			primary := &ttsmock.Provider{Chunks: [][]byte{[]byte("primary")}, SynthesizeErr: tt.primaryErr}
			secondary := &ttsmock.Provider{Chunks: [][]byte{[]byte("secondary")}}
			fb := NewTTSFallback(primary, "elevenlabs", FallbackConfig{})
			fb.AddFallback("elevenlabs-backup", secondary)

			audio, err := fb.SynthesizeStream(context.Background(), tts.NewUtterance("hello"))
			if err != nil {
				t.Fatalf("SynthesizeStream: %v", err)
			}
			var got string
			for chunk := range audio {
				got += string(chunk)
			}
			if got != tt.wantAudio {
				t.Errorf("audio = %q, want %q", got, tt.wantAudio)
			}
		})
	}
}

func TestTTSFallback_ListVoices(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{Voices: []tts.Voice{{ID: "v1", Name: "Rachel"}}}
	fb := NewTTSFallback(primary, "elevenlabs", FallbackConfig{})
	voices, err := fb.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "Rachel" {
		t.Errorf("voices = %+v", voices)
	}
}
