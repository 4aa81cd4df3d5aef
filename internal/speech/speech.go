// Package speech adapts the STT and TTS providers to the voice pipeline's
// device model: [Capture] turns an [audio.Source] into a stream of transcript
// events, and [Output] speaks text into an [audio.Sink].
package speech

import (
	"errors"

	"github.com/MrWong99/bit10voice/pkg/audio"
)

var (
	// ErrUnsupported means no provider is configured for the requested
	// direction (recognition or synthesis).
	ErrUnsupported = errors.New("speech: not supported: no provider configured")

	// ErrPermissionDenied is the capture device refusing access. It is the
	// same value as [audio.ErrPermissionDenied].
	ErrPermissionDenied = audio.ErrPermissionDenied

	// ErrActive is returned by [Capture.Listen] while a session is running.
	ErrActive = errors.New("speech: capture already active")
)
