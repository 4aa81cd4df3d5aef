// Package voice runs the spoken question-and-answer loop.
//
// A [Session] moves through Idle → Listening → Processing → Speaking → Idle.
// Only one turn runs at a time; starting another while the session is busy
// fails with [ErrBusy]. Every path, including failures and [Session.Stop],
// ends in Idle. The store's voice flags mirror the current state so
// dashboards observe it through [store.Store.Subscribe].
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/bit10voice/internal/interpreter"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/speech"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/pkg/audio"
)

// ErrBusy is returned when a turn is requested while another is running.
var ErrBusy = errors.New("voice: a voice turn is already in progress")

// ErrStopped is returned when [Session.Stop] cancels a turn before its answer
// was spoken.
var ErrStopped = errors.New("voice: turn stopped")

// State is the position of a [Session] in its turn cycle.
type State int

const (
	Idle State = iota
	Listening
	Processing
	Speaking
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Recognizer captures one utterance. *speech.Capture satisfies it.
type Recognizer interface {
	Listen(ctx context.Context, src audio.Source) (<-chan speech.Event, error)
	Stop()
}

// Speaker reads text aloud. *speech.Output satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string, sink audio.Sink) (speech.Done, error)
}

// Answerer turns a transcript into a reply. *interpreter.Interpreter
// satisfies it.
type Answerer interface {
	Answer(ctx context.Context, text string) interpreter.Answer
}

// Result is the outcome of one completed turn.
type Result struct {
	// Heard is the recognised transcript. Empty when nothing was heard.
	Heard string `json:"heard"`

	// Answer is the interpreter's reply. Zero when nothing was heard.
	Answer interpreter.Answer `json:"answer"`

	// Spoken reports whether the answer was played on the sink.
	Spoken bool `json:"spoken"`
}

// Option configures a [Session].
type Option func(*Session)

// WithRecognizer enables [Session.Listen].
func WithRecognizer(r Recognizer) Option {
	return func(s *Session) { s.recognizer = r }
}

// WithSpeaker enables spoken answers.
func WithSpeaker(sp Speaker) Option {
	return func(s *Session) { s.speaker = sp }
}

// WithMetrics records state transitions on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is the voice state machine. All methods are safe for concurrent
// use.
type Session struct {
	answerer   Answerer
	store      *store.Store
	recognizer Recognizer
	speaker    Speaker
	metrics    *observe.Metrics

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	stopped bool
}

// New returns an idle Session that answers with a and mirrors its state
// into st.
func New(a Answerer, st *store.Store, opts ...Option) *Session {
	s := &Session{answerer: a, store: st}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Listen records one utterance from src, answers it and speaks the answer on
// sink. It blocks until the turn is over. Interim transcripts are published
// through the store while listening. A nil sink skips playback.
//
// When nothing was heard the turn ends without an answer and a zero Result.
// Recognition failures are returned unchanged, so callers can tell
// [speech.ErrUnsupported] and [speech.ErrPermissionDenied] apart.
func (s *Session) Listen(ctx context.Context, src audio.Source, sink audio.Sink) (Result, error) {
	ctx, err := s.begin(ctx, Listening)
	if err != nil {
		return Result{}, err
	}
	defer s.end(ctx)

	if s.recognizer == nil {
		return Result{}, s.fail(ctx, speech.ErrUnsupported)
	}
	events, err := s.recognizer.Listen(ctx, src)
	if err != nil {
		return Result{}, s.fail(ctx, err)
	}
	// A Stop that raced with session start reached a recognizer with nothing
	// to stop yet.
	if s.wasStopped() {
		s.recognizer.Stop()
	}

	var heard string
	var endErr error
	for ev := range events {
		switch ev.Kind {
		case speech.EventPartial:
			text := ev.Text
			s.store.UpdateVoice(store.VoicePatch{Transcript: &text})
		case speech.EventEnd:
			heard, endErr = ev.Text, ev.Err
		}
	}
	if endErr != nil {
		return Result{}, s.fail(ctx, endErr)
	}
	if heard == "" {
		if s.wasStopped() {
			return Result{}, ErrStopped
		}
		return Result{}, nil
	}
	return s.respond(ctx, heard, sink)
}

// Ask answers text as if it had been spoken and speaks the answer on sink.
// A nil sink skips playback.
func (s *Session) Ask(ctx context.Context, text string, sink audio.Sink) (Result, error) {
	ctx, err := s.begin(ctx, Processing)
	if err != nil {
		return Result{}, err
	}
	defer s.end(ctx)

	s.store.UpdateVoice(store.VoicePatch{Transcript: &text})
	return s.respond(ctx, text, sink)
}

// Stop ends the running turn. While listening, recognition stops and what
// was heard so far is still answered. While processing or speaking, the
// turn is abandoned. Stop is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	state, cancel := s.state, s.cancel
	if state != Idle {
		s.stopped = true
	}
	s.mu.Unlock()

	switch state {
	case Listening:
		if s.recognizer != nil {
			s.recognizer.Stop()
		}
	case Processing, Speaking:
		cancel()
	}
}

// respond runs the Processing and Speaking steps for heard.
func (s *Session) respond(ctx context.Context, heard string, sink audio.Sink) (Result, error) {
	if s.State() != Processing {
		if !s.transition(ctx, Listening, Processing) {
			return Result{}, ErrStopped
		}
	}
	s.store.AppendTurn(store.RoleUser, heard)

	ans := s.answerer.Answer(ctx, heard)
	if ctx.Err() != nil {
		return Result{Heard: heard}, ErrStopped
	}
	text := ans.Text
	s.store.AppendTurn(store.RoleAssistant, text)
	s.store.UpdateVoice(store.VoicePatch{Response: &text})
	res := Result{Heard: heard, Answer: ans}

	if sink == nil || s.speaker == nil {
		return res, nil
	}
	if !s.transition(ctx, Processing, Speaking) {
		return res, ErrStopped
	}
	done, err := s.speaker.Speak(ctx, text, sink)
	if err != nil {
		// The answer is still in the conversation log; only playback is lost.
		observe.Logger(ctx).Warn("voice: cannot speak answer", "err", err)
		msg := err.Error()
		s.store.UpdateVoice(store.VoicePatch{Error: &msg})
		return res, nil
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		return res, ErrStopped
	}
	res.Spoken = true
	return res, nil
}

// begin moves the session from Idle to first and returns the turn context.
func (s *Session) begin(ctx context.Context, first State) (context.Context, error) {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	s.state = first
	s.cancel = cancel
	s.stopped = false
	s.mu.Unlock()

	empty := ""
	patch := flags(first)
	patch.Transcript = &empty
	patch.Error = &empty
	s.store.UpdateVoice(patch)
	s.record(ctx, Idle, first)
	return ctx, nil
}

// transition moves from → to. It reports false when the session is no
// longer in from, which happens after Stop abandoned the turn.
func (s *Session) transition(ctx context.Context, from, to State) bool {
	s.mu.Lock()
	if s.state != from || ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	s.store.UpdateVoice(flags(to))
	s.record(ctx, from, to)
	return true
}

// end returns the session to Idle and clears the in-progress transcript.
func (s *Session) end(ctx context.Context) {
	s.mu.Lock()
	from := s.state
	s.state = Idle
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	cancel()

	empty := ""
	patch := flags(Idle)
	patch.Transcript = &empty
	s.store.UpdateVoice(patch)
	s.record(context.WithoutCancel(ctx), from, Idle)
}

// fail records err as the visible voice error and returns it.
func (s *Session) fail(ctx context.Context, err error) error {
	msg := describe(err)
	s.store.UpdateVoice(store.VoicePatch{Error: &msg})
	observe.Logger(ctx).Warn("voice: turn failed", "err", err)
	return err
}

func (s *Session) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) record(ctx context.Context, from, to State) {
	if s.metrics != nil {
		s.metrics.RecordVoiceTransition(ctx, from.String(), to.String())
	}
}

// flags is the store patch that mirrors st.
func flags(st State) store.VoicePatch {
	listening, processing, speaking := st == Listening, st == Processing, st == Speaking
	return store.VoicePatch{Listening: &listening, Processing: &processing, Speaking: &speaking}
}

// describe turns capture failures into a message fit for the dashboard.
func describe(err error) string {
	switch {
	case errors.Is(err, speech.ErrUnsupported):
		return "Speech recognition is not available. Configure a speech-to-text provider to use voice input."
	case errors.Is(err, speech.ErrPermissionDenied):
		return "Microphone access was denied. Allow microphone access to use voice input."
	default:
		return err.Error()
	}
}
