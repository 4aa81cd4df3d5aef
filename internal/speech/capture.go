package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/pkg/audio"
	"github.com/MrWong99/bit10voice/pkg/provider/stt"
)

// EventKind classifies a capture [Event].
type EventKind int

const (
	// EventPartial carries transcript text. Interim and final hypotheses are
	// both delivered as partials; IsFinal tells them apart.
	EventPartial EventKind = iota

	// EventEnd is the last event of a session. Its Text is the accumulated
	// final transcript and Err is set when the session broke off.
	EventEnd
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventPartial:
		return "partial"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one step of a capture session.
type Event struct {
	Kind    EventKind
	Text    string
	IsFinal bool
	Err     error
}

// CaptureOption configures a [Capture].
type CaptureOption func(*Capture)

// WithCaptureMetrics records session counts and latency on m.
func WithCaptureMetrics(m *observe.Metrics) CaptureOption {
	return func(c *Capture) { c.metrics = m }
}

// Capture runs one recognition session at a time.
type Capture struct {
	provider stt.Provider
	cfg      stt.CaptureConfig
	metrics  *observe.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// NewCapture returns a Capture using p with cfg. A nil p yields a Capture
// whose Listen always fails with [ErrUnsupported].
func NewCapture(p stt.Provider, cfg stt.CaptureConfig, opts ...CaptureOption) *Capture {
	c := &Capture{provider: p, cfg: cfg}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns the session configuration.
func (c *Capture) Config() stt.CaptureConfig { return c.cfg }

// Listen opens src, starts a recognition session and returns its events.
// The channel ends with exactly one [EventEnd] and is then closed.
//
// A non-continuous session ends after its first final transcript. Any
// session ends when src closes, ctx is cancelled or [Capture.Stop] is called.
func (c *Capture) Listen(ctx context.Context, src audio.Source) (<-chan Event, error) {
	if c.provider == nil {
		return nil, ErrUnsupported
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil, ErrActive
	}
	sessCtx, cancel := context.WithCancel(ctx)
	c.seq++
	id := c.seq
	c.cancel = cancel
	c.mu.Unlock()

	fail := func(err error) (<-chan Event, error) {
		cancel()
		c.finish(id)
		return nil, err
	}

	frames, err := src.Open(sessCtx)
	if err != nil {
		return fail(fmt.Errorf("speech: open audio source: %w", err))
	}
	sess, err := c.provider.StartStream(sessCtx, c.cfg)
	if err != nil {
		return fail(fmt.Errorf("speech: start recognition: %w", err))
	}

	if c.metrics != nil {
		c.metrics.ActiveVoiceSessions.Add(ctx, 1)
	}
	observe.Logger(ctx).Debug("speech: capture started", "language", c.cfg.Language, "continuous", c.cfg.Continuous)

	r := &run{
		capture: c,
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		sess:    sess,
		out:     make(chan Event, 16),
		start:   time.Now(),
	}
	go r.pump(sessCtx, frames)
	go r.dispatch()
	return r.out, nil
}

// Stop ends the running session, if any. The session still flushes its last
// final transcript and EventEnd. Safe to call at any time.
func (c *Capture) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Active reports whether a session is running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Capture) finish(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == id {
		c.cancel = nil
	}
}

// run is the state of one Listen call.
type run struct {
	capture *Capture
	id      uint64
	ctx     context.Context
	cancel  context.CancelFunc
	sess    stt.SessionHandle
	out     chan Event
	start   time.Time

	mu  sync.Mutex
	err error
}

// pump forwards audio to the session and closes it when capture ends.
func (r *run) pump(ctx context.Context, frames <-chan audio.Frame) {
	defer func() {
		if err := r.sess.Close(); err != nil {
			r.setErr(fmt.Errorf("speech: close recognition: %w", err))
		}
	}()
	cfg := r.capture.cfg
	conv := audio.Converter{Target: audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}}
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			cf, ok := conv.Convert(f)
			if !ok {
				continue
			}
			if err := r.sess.SendAudio(cf.Data); err != nil {
				r.setErr(fmt.Errorf("speech: send audio: %w", err))
				return
			}
		}
	}
}

// dispatch turns session transcripts into events until both channels close.
func (r *run) dispatch() {
	defer close(r.out)
	defer r.capture.finish(r.id)
	defer r.cancel()

	partials, finals := r.sess.Partials(), r.sess.Finals()
	var final []string
	for partials != nil || finals != nil {
		select {
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			r.emit(Event{Kind: EventPartial, Text: t.Text})
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			final = append(final, strings.TrimSpace(t.Text))
			r.emit(Event{Kind: EventPartial, Text: t.Text, IsFinal: true})
			if !r.capture.cfg.Continuous {
				r.cancel()
			}
		}
	}

	text := strings.TrimSpace(strings.Join(final, " "))
	if text != "" {
		r.emit(Event{Kind: EventPartial, Text: text, IsFinal: true})
	}
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	r.emit(Event{Kind: EventEnd, Text: text, Err: err})

	if m := r.capture.metrics; m != nil {
		m.ActiveVoiceSessions.Add(r.ctx, -1)
		m.STTDuration.Record(r.ctx, time.Since(r.start).Seconds())
	}
	observe.Logger(r.ctx).Debug("speech: capture ended", "transcript", text, "err", err)
}

func (r *run) emit(e Event) {
	select {
	case r.out <- e:
	case <-r.ctx.Done():
		// Nobody is listening any more; still try to hand over without blocking.
		select {
		case r.out <- e:
		default:
		}
	}
}

func (r *run) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
