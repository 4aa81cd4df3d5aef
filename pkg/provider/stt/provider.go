// Package stt defines the Provider interface for speech-to-text backends.
//
// A provider wraps a streaming transcription service (Deepgram, or any
// compatible engine) behind SessionHandle: once opened, a session accepts raw
// 16-bit PCM and emits interim transcripts on Partials and committed ones on
// Finals. Both channels close when the session ends, which is how callers
// learn that the engine is done.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// CaptureConfig describes how a recognition session should behave.
type CaptureConfig struct {
	// Continuous keeps the session open across utterances. When false the
	// caller ends the session after the first final transcript.
	Continuous bool

	// InterimResults requests partial hypotheses in addition to finals.
	InterimResults bool

	// Language is the BCP-47 recognition language (e.g., "en-US").
	Language string

	// MaxAlternatives caps the number of hypotheses per result.
	MaxAlternatives int

	// SampleRate of the PCM input in Hz.
	SampleRate int

	// Channels of the PCM input. 1 = mono.
	Channels int

	// Keywords are vocabulary hints such as asset names and tickers.
	Keywords []string
}

// DefaultCaptureConfig returns the configuration used for a single spoken
// question: one utterance, interim results on, US English, one alternative,
// 16 kHz mono.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Continuous:      false,
		InterimResults:  true,
		Language:        "en-US",
		MaxAlternatives: 1,
		SampleRate:      16000,
		Channels:        1,
	}
}

// SessionHandle is an open recognition session.
//
// Callers must call Close when done. Close is idempotent; after it returns
// both transcript channels are closed.
type SessionHandle interface {
	// SendAudio delivers a chunk of PCM matching the session's CaptureConfig.
	// Returns an error after Close.
	SendAudio(chunk []byte) error

	// Partials emits interim hypotheses. Closed when the session ends.
	Partials() <-chan Transcript

	// Finals emits committed transcripts. Closed when the session ends.
	Finals() <-chan Transcript

	// Close flushes pending audio and releases the session.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// StartStream opens a new recognition session ready for audio.
	StartStream(ctx context.Context, cfg CaptureConfig) (SessionHandle, error)
}
