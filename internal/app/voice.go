package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/bit10voice/internal/config"
	"github.com/MrWong99/bit10voice/internal/interpreter"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/speech"
	"github.com/MrWong99/bit10voice/internal/voice"
	"github.com/MrWong99/bit10voice/pkg/audio"
	"github.com/MrWong99/bit10voice/pkg/provider/stt"
	"github.com/MrWong99/bit10voice/pkg/provider/tts"
)

var (
	_ voice.Recognizer = (*liveCapture)(nil)
	_ voice.Speaker    = (*liveOutput)(nil)
)

// liveCapture is a recognizer whose capture can be replaced between turns.
// Stop reaches the capture of the running turn even after a swap.
type liveCapture struct {
	current atomic.Pointer[speech.Capture]

	mu      sync.Mutex
	running *speech.Capture
}

func (l *liveCapture) set(c *speech.Capture) { l.current.Store(c) }

func (l *liveCapture) Listen(ctx context.Context, src audio.Source) (<-chan speech.Event, error) {
	c := l.current.Load()
	l.mu.Lock()
	l.running = c
	l.mu.Unlock()
	return c.Listen(ctx, src)
}

func (l *liveCapture) Stop() {
	l.mu.Lock()
	c := l.running
	l.mu.Unlock()
	if c == nil {
		c = l.current.Load()
	}
	c.Stop()
}

// liveOutput is a speaker whose output can be replaced between turns.
type liveOutput struct {
	current atomic.Pointer[speech.Output]
}

func (l *liveOutput) set(o *speech.Output) { l.current.Store(o) }

func (l *liveOutput) Speak(ctx context.Context, text string, sink audio.Sink) (speech.Done, error) {
	return l.current.Load().Speak(ctx, text, sink)
}

// newCapture builds a capture from the voice settings, boosting the asset
// vocabulary in recognition.
func newCapture(p stt.Provider, v config.VoiceConfig, m *observe.Metrics) *speech.Capture {
	cfg := stt.CaptureConfig{
		Continuous:      v.Continuous,
		InterimResults:  v.Interim(),
		Language:        v.Language,
		MaxAlternatives: v.MaxAlternatives,
		SampleRate:      v.SampleRate,
		Channels:        1,
		Keywords:        interpreter.Keywords(),
	}
	return speech.NewCapture(p, cfg, speech.WithCaptureMetrics(m))
}

// newOutput builds a speech output from the voice settings.
func newOutput(p tts.Provider, v config.VoiceConfig, m *observe.Metrics) *speech.Output {
	_, out := audioFormats(v)
	return speech.NewOutput(p,
		speech.WithVoice(v.VoiceID),
		speech.WithProsody(v.Rate, v.Pitch, v.Volume),
		speech.WithFormat(out),
		speech.WithOutputMetrics(m),
	)
}

// audioFormats returns the PCM formats clients send and receive. Both are
// mono at the configured sample rate.
func audioFormats(v config.VoiceConfig) (in, out audio.Format) {
	f := audio.Format{SampleRate: v.SampleRate, Channels: 1}
	return f, f
}
