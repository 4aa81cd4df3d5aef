// Package tts defines the Provider interface for text-to-speech backends.
//
// A provider turns one Utterance into a stream of raw 16-bit PCM chunks. The
// channel closes when synthesis is complete, when ctx is cancelled, or when
// the backend fails mid-stream; callers that care about the difference check
// ctx.Err().
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// SynthesizeStream starts synthesis of u and returns its audio. A non-nil
	// error means the stream could not be started at all.
	SynthesizeStream(ctx context.Context, u Utterance) (<-chan []byte, error)

	// ListVoices returns the voices available to the configured account.
	ListVoices(ctx context.Context) ([]Voice, error)
}
