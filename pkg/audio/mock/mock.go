// Package mock provides test doubles for [audio.Source] and [audio.Sink].
//
//	src := mock.NewSource(frame1, frame2) // closes after two frames
//	sink := &mock.Sink{}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/bit10voice/pkg/audio"
)

var (
	_ audio.Source = (*Source)(nil)
	_ audio.Sink   = (*Sink)(nil)
)

// Source replays Frames on Open.
type Source struct {
	mu sync.Mutex

	// Frames are sent in order, then the channel closes unless Hold is set.
	Frames []audio.Frame

	// Hold keeps the channel open after Frames until ctx is cancelled.
	Hold bool

	// OpenErr is returned by Open instead of a stream.
	OpenErr error

	OpenCalls int
}

// NewSource returns a Source that emits frames and then closes.
func NewSource(frames ...audio.Frame) *Source {
	return &Source{Frames: frames}
}

// Open implements [audio.Source].
func (s *Source) Open(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls++
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	frames := append([]audio.Frame(nil), s.Frames...)
	hold := s.Hold
	out := make(chan audio.Frame)
	go func() {
		defer close(out)
		for _, f := range frames {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
		if hold {
			<-ctx.Done()
		}
	}()
	return out, nil
}

// Sink records every played frame.
type Sink struct {
	mu sync.Mutex

	// PlayErr is returned by Play after recording the frame.
	PlayErr error

	played []audio.Frame
}

// Play implements [audio.Sink].
func (s *Sink) Play(ctx context.Context, f audio.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, f)
	return s.PlayErr
}

// Played returns a copy of the recorded frames.
func (s *Sink) Played() []audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audio.Frame(nil), s.played...)
}

// Bytes returns the concatenated PCM of all played frames.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, f := range s.played {
		out = append(out, f.Data...)
	}
	return out
}
