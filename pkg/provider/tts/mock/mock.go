// Package mock provides a test double for the tts.Provider interface.
//
//	p := &mock.Provider{Chunks: [][]byte{{1, 0}, {2, 0}}}
//	ch, _ := p.SynthesizeStream(ctx, tts.NewUtterance("hello"))
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/bit10voice/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Chunks is emitted on the channel returned by SynthesizeStream.
	Chunks [][]byte

	// SynthesizeErr, if non-nil, is returned by SynthesizeStream.
	SynthesizeErr error

	// Block, if non-nil, is waited on before the audio channel is closed.
	// Useful to hold a synthesis in flight.
	Block <-chan struct{}

	// Voices and ListVoicesErr are returned by ListVoices.
	Voices        []tts.Voice
	ListVoicesErr error

	// SynthesizeCalls records every Utterance passed to SynthesizeStream.
	SynthesizeCalls []tts.Utterance
}

// SynthesizeStream records the call and streams Chunks.
func (p *Provider) SynthesizeStream(ctx context.Context, u tts.Utterance) (<-chan []byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, u)
	err := p.SynthesizeErr
	chunks := append([][]byte(nil), p.Chunks...)
	block := p.Block
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	out := make(chan []byte, len(chunks))
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- append([]byte(nil), c...):
			case <-ctx.Done():
				return
			}
		}
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, p.ListVoicesErr
}

// Calls returns a copy of the recorded utterances.
func (p *Provider) Calls() []tts.Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]tts.Utterance(nil), p.SynthesizeCalls...)
}
