package speech

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/pkg/audio"
	"github.com/MrWong99/bit10voice/pkg/provider/tts"
)

// Done resolves (closes) when an utterance has finished playing or failed.
type Done <-chan struct{}

// OutputOption configures an [Output].
type OutputOption func(*Output)

// WithVoice selects the synthesis voice. Empty uses the provider default.
func WithVoice(id string) OutputOption {
	return func(o *Output) { o.voiceID = id }
}

// WithProsody overrides the default rate, pitch and volume.
func WithProsody(rate, pitch, volume float64) OutputOption {
	return func(o *Output) {
		o.rate, o.pitch, o.volume = rate, pitch, volume
	}
}

// WithFormat sets the PCM format the provider synthesises. Default 16 kHz mono.
func WithFormat(f audio.Format) OutputOption {
	return func(o *Output) { o.format = f }
}

// WithOutputMetrics records synthesis latency and failures on m.
func WithOutputMetrics(m *observe.Metrics) OutputOption {
	return func(o *Output) { o.metrics = m }
}

// Output speaks text through a TTS provider.
type Output struct {
	provider tts.Provider
	voiceID  string
	rate     float64
	pitch    float64
	volume   float64
	format   audio.Format
	metrics  *observe.Metrics
}

// NewOutput returns an Output using p. A nil p yields an Output whose Speak
// always fails with [ErrUnsupported].
func NewOutput(p tts.Provider, opts ...OutputOption) *Output {
	o := &Output{
		provider: p,
		rate:     tts.DefaultRate,
		pitch:    tts.DefaultPitch,
		volume:   tts.DefaultVolume,
		format:   audio.Format{SampleRate: 16000, Channels: 1},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Speak synthesises text and plays it on sink. The returned [Done] closes
// when playback ends, when synthesis or playback fails, or when ctx is
// cancelled; failures are logged rather than reported. Only a missing provider
// is an error.
func (o *Output) Speak(ctx context.Context, text string, sink audio.Sink) (Done, error) {
	if o.provider == nil {
		return nil, ErrUnsupported
	}
	done := make(chan struct{})
	if strings.TrimSpace(text) == "" {
		close(done)
		return done, nil
	}

	u := tts.Utterance{Text: text, VoiceID: o.voiceID, Rate: o.rate, Pitch: o.pitch, Volume: o.volume}
	go func() {
		defer close(done)
		o.play(ctx, u, sink)
	}()
	return done, nil
}

func (o *Output) play(ctx context.Context, u tts.Utterance, sink audio.Sink) {
	log := observe.Logger(ctx)
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "speech.speak")
	defer span.End()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := o.provider.SynthesizeStream(ctx, u)
	if err != nil {
		log.Warn("speech: synthesis failed", "err", err)
		o.record(ctx, start, err)
		return
	}

	var offset time.Duration
	bytesPerSecond := o.format.SampleRate * max(o.format.Channels, 1) * 2
	for chunk := range chunks {
		f := audio.Frame{
			Data:       audio.ApplyGain(chunk, u.Volume),
			SampleRate: o.format.SampleRate,
			Channels:   o.format.Channels,
			Timestamp:  offset,
		}
		if bytesPerSecond > 0 {
			offset += time.Duration(len(chunk)) * time.Second / time.Duration(bytesPerSecond)
		}
		if err := sink.Play(ctx, f); err != nil {
			log.Warn("speech: playback failed", "err", err)
			cancel()
			audio.Drain(chunks)
			o.record(ctx, start, err)
			return
		}
	}
	o.record(ctx, start, ctx.Err())
}

func (o *Output) record(ctx context.Context, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.RecordProviderRequest(ctx, "tts", "tts", status)
}
