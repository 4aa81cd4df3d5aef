// Package audio defines the PCM frame type and the device abstractions the
// voice pipeline reads from and writes to.
//
//   - [Source] models a microphone: opening it yields a stream of frames.
//   - [Sink] models a speaker: frames written to it are played back.
//
// All audio is little-endian signed 16-bit PCM. Implementations live next to
// their transport (the WebSocket handler in internal/api is both a Source and
// a Sink).
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned by [Source.Open] when the capture device
// refuses access.
var ErrPermissionDenied = errors.New("audio: microphone access denied")

// Frame is a chunk of PCM audio.
type Frame struct {
	Data []byte

	// SampleRate in Hz (16000 for speech recognition and synthesis).
	SampleRate int

	// Channels is 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp is the capture offset from stream start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Source produces captured audio.
type Source interface {
	// Open starts capture. The returned channel is closed when the device
	// stops producing audio or ctx is cancelled. Returns ErrPermissionDenied
	// (possibly wrapped) when access is refused.
	Open(ctx context.Context) (<-chan Frame, error)
}

// Sink plays audio.
type Sink interface {
	// Play queues f for playback. It may block for back-pressure and returns
	// early with ctx.Err() when ctx is cancelled.
	Play(ctx context.Context, f Frame) error
}

// Drain reads from ch until the channel is closed, discarding all values.
// Use it to release a producer goroutine when the stream is no longer wanted.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
