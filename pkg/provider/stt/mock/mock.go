// Package mock provides test doubles for the stt package interfaces.
//
// Provider records every StartStream call. Session owns its transcript
// channels: tests push results with Emit and simulate the engine ending the
// session with End. Close also ends the session, as a real provider would.
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	sess.Emit(stt.Transcript{Text: "bitcoin", IsFinal: true})
//	sess.End()
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/bit10voice/pkg/provider/stt"
)

var (
	_ stt.Provider      = (*Provider)(nil)
	_ stt.SessionHandle = (*Session)(nil)
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by StartStream. When nil a fresh Session is created.
	Session *Session

	// StartStreamErr, if non-nil, is returned by StartStream.
	StartStreamErr error

	// StartStreamCalls records the config of every StartStream call.
	StartStreamCalls []stt.CaptureConfig
}

// StartStream records the call and returns Session, StartStreamErr.
func (p *Provider) StartStream(_ context.Context, cfg stt.CaptureConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = append(p.StartStreamCalls, cfg)
	if p.StartStreamErr != nil {
		return nil, p.StartStreamErr
	}
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}

// Calls returns the number of StartStream calls so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.StartStreamCalls)
}

// Session is a mock implementation of stt.SessionHandle.
type Session struct {
	partials chan stt.Transcript
	finals   chan stt.Transcript
	endOnce  sync.Once

	mu sync.Mutex

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// Audio holds a copy of every chunk passed to SendAudio.
	Audio [][]byte

	// CloseCalls counts Close invocations.
	CloseCalls int
}

// NewSession returns a Session with buffered transcript channels.
func NewSession() *Session {
	return &Session{
		partials: make(chan stt.Transcript, 64),
		finals:   make(chan stt.Transcript, 64),
	}
}

// Emit delivers t on Partials or Finals depending on t.IsFinal.
func (s *Session) Emit(t stt.Transcript) {
	if t.IsFinal {
		s.finals <- t
		return
	}
	s.partials <- t
}

// End closes both transcript channels. Safe to call more than once.
func (s *Session) End() {
	s.endOnce.Do(func() {
		close(s.partials)
		close(s.finals)
	})
}

// SendAudio records a copy of chunk and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Audio = append(s.Audio, append([]byte(nil), chunk...))
	return s.SendAudioErr
}

// Partials implements stt.SessionHandle.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements stt.SessionHandle.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Close records the call and ends the session.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCalls++
	s.mu.Unlock()
	s.End()
	return nil
}

// AudioChunks returns the number of chunks received so far.
func (s *Session) AudioChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Audio)
}
