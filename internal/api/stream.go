package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/internal/voice"
	"github.com/MrWong99/bit10voice/pkg/audio"
)

// Voice stream protocol.
//
// Client to server:
//   - binary: PCM16 audio in the announced input format, while listening
//   - text {"type":"start"}: begin a listening turn
//   - text {"type":"stop"}: end listening, or abandon the answer
//   - text {"type":"ask","text":"..."}: answer typed text
//
// Server to client:
//   - text {"type":"hello",...}: input and output formats, sent first
//   - text {"type":"voice","voice":{...}}: voice flags and live transcript
//   - text {"type":"turn","turn":{...}}: a new conversation entry
//   - text {"type":"result","result":{...}}: a finished turn
//   - text {"type":"error","error":"..."}
//   - binary: PCM16 speech in the announced output format
type (
	controlMessage struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}

	formatInfo struct {
		SampleRate int `json:"sample_rate"`
		Channels   int `json:"channels"`
	}

	helloEvent struct {
		Type   string     `json:"type"`
		Input  formatInfo `json:"input"`
		Output formatInfo `json:"output"`
	}

	voiceEvent struct {
		Type  string      `json:"type"`
		Voice store.Voice `json:"voice"`
	}

	turnEvent struct {
		Type string     `json:"type"`
		Turn store.Turn `json:"turn"`
	}

	resultEvent struct {
		Type   string       `json:"type"`
		Result voice.Result `json:"result"`
	}

	errorEvent struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
)

const streamWriteTimeout = 10 * time.Second

func (s *Server) stream(c *gin.Context) {
	if s.voice == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice assistant is not enabled"})
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: s.originPatterns})
	if err != nil {
		observe.Logger(c.Request.Context()).Warn("api: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	sc := &streamConn{server: s, conn: conn}
	err = sc.serve(c.Request.Context())
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		_ = conn.Close(websocket.StatusNormalClosure, "")
	default:
		if err != nil && !errors.Is(err, context.Canceled) {
			observe.Logger(c.Request.Context()).Debug("api: voice stream ended", "err", err)
		}
		_ = conn.Close(websocket.StatusInternalError, "stream ended")
	}
}

// streamConn is one connected voice client.
type streamConn struct {
	server *Server
	conn   *websocket.Conn

	mu  sync.Mutex
	src *streamSource
}

func (sc *streamConn) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in, out := sc.server.inFormat, sc.server.outFormat
	if err := sc.send(ctx, helloEvent{
		Type:   "hello",
		Input:  formatInfo{SampleRate: in.SampleRate, Channels: in.Channels},
		Output: formatInfo{SampleRate: out.SampleRate, Channels: out.Channels},
	}); err != nil {
		return err
	}

	// Turns run on ctx, so leaving the loop abandons them before Wait.
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	wg.Go(func() { sc.forward(ctx) })

	for {
		typ, data, err := sc.conn.Read(ctx)
		if err != nil {
			return err
		}
		switch typ {
		case websocket.MessageBinary:
			if src := sc.current(); src != nil {
				src.push(data)
			}
		case websocket.MessageText:
			sc.control(ctx, data, &wg)
		}
	}
}

func (sc *streamConn) control(ctx context.Context, data []byte, wg *sync.WaitGroup) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sc.sendError(ctx, "invalid control message")
		return
	}
	sink := &streamSink{conn: sc.conn}
	switch msg.Type {
	case "start":
		sc.mu.Lock()
		if sc.src != nil {
			sc.mu.Unlock()
			sc.sendError(ctx, voice.ErrBusy.Error())
			return
		}
		src := newStreamSource(sc.server.inFormat)
		sc.src = src
		sc.mu.Unlock()
		wg.Go(func() {
			res, err := sc.server.voice.Listen(ctx, src, sink)
			sc.mu.Lock()
			if sc.src == src {
				sc.src = nil
			}
			sc.mu.Unlock()
			sc.report(ctx, res, err)
		})
	case "stop":
		sc.mu.Lock()
		if sc.src != nil {
			sc.src.close()
		}
		sc.mu.Unlock()
		sc.server.voice.Stop()
	case "ask":
		wg.Go(func() {
			res, err := sc.server.voice.Ask(ctx, msg.Text, sink)
			sc.report(ctx, res, err)
		})
	default:
		sc.sendError(ctx, "unknown message type "+msg.Type)
	}
}

func (sc *streamConn) report(ctx context.Context, res voice.Result, err error) {
	if err != nil {
		sc.sendError(ctx, err.Error())
		return
	}
	_ = sc.send(ctx, resultEvent{Type: "result", Result: res})
}

// forward relays voice flag changes and new conversation turns from the
// store until ctx ends.
func (sc *streamConn) forward(ctx context.Context) {
	snaps, cancel := sc.server.store.Subscribe()
	defer cancel()

	first := true
	var last store.Voice
	var turns int
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if first || snap.Voice != last {
				last = snap.Voice
				if err := sc.send(ctx, voiceEvent{Type: "voice", Voice: snap.Voice}); err != nil {
					return
				}
			}
			if first {
				turns = len(snap.Conversation)
				first = false
			}
			for ; turns < len(snap.Conversation); turns++ {
				if err := sc.send(ctx, turnEvent{Type: "turn", Turn: snap.Conversation[turns]}); err != nil {
					return
				}
			}
		}
	}
}

func (sc *streamConn) current() *streamSource {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.src
}

func (sc *streamConn) send(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, sc.conn, v)
}

func (sc *streamConn) sendError(ctx context.Context, msg string) {
	_ = sc.send(ctx, errorEvent{Type: "error", Error: msg})
}

// streamSource is the microphone side of a voice stream. Frames pushed after
// the buffer fills are dropped rather than stalling the read loop.
type streamSource struct {
	format audio.Format
	frames chan audio.Frame
	offset time.Duration

	mu     sync.Mutex
	closed bool
	opened bool
}

var _ audio.Source = (*streamSource)(nil)

func newStreamSource(f audio.Format) *streamSource {
	return &streamSource{format: f, frames: make(chan audio.Frame, 64)}
}

// Open returns the frame channel. A source can be opened once.
func (s *streamSource) Open(context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, errors.New("api: audio source already opened")
	}
	s.opened = true
	return s.frames, nil
}

func (s *streamSource) push(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	f := audio.Frame{Data: data, SampleRate: s.format.SampleRate, Channels: s.format.Channels, Timestamp: s.offset}
	if bps := s.format.SampleRate * max(s.format.Channels, 1) * 2; bps > 0 {
		s.offset += time.Duration(len(data)) * time.Second / time.Duration(bps)
	}
	select {
	case s.frames <- f:
	default:
	}
}

func (s *streamSource) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

// streamSink is the speaker side of a voice stream.
type streamSink struct {
	conn *websocket.Conn
}

var _ audio.Sink = (*streamSink)(nil)

func (s *streamSink) Play(ctx context.Context, f audio.Frame) error {
	return s.conn.Write(ctx, websocket.MessageBinary, f.Data)
}
