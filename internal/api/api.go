// Package api exposes the dashboard state and the voice pipeline over HTTP.
//
// REST routes live under /api and are served by gin. The voice stream at
// /api/voice/stream is a WebSocket carrying PCM audio in both directions and
// JSON events from the server.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/store"
	"github.com/MrWong99/bit10voice/internal/voice"
	"github.com/MrWong99/bit10voice/pkg/audio"
	"github.com/MrWong99/bit10voice/pkg/market"
)

// AssetLookup resolves a single asset. *marketdata.Client satisfies it.
type AssetLookup interface {
	AssetByID(ctx context.Context, id string) (market.Asset, bool)
}

// VoiceSession runs voice turns. *voice.Session satisfies it.
type VoiceSession interface {
	Listen(ctx context.Context, src audio.Source, sink audio.Sink) (voice.Result, error)
	Ask(ctx context.Context, text string, sink audio.Sink) (voice.Result, error)
	Stop()
	State() voice.State
}

// SignedURLer issues managed-conversation URLs. *convai.Client satisfies it.
type SignedURLer interface {
	SignedURL(ctx context.Context) (string, error)
}

// Option configures a [Server].
type Option func(*Server)

// WithAssetLookup serves /api/assets/:id from l when the asset is not in
// the current snapshot.
func WithAssetLookup(l AssetLookup) Option {
	return func(s *Server) { s.assets = l }
}

// WithVoice enables the /api/voice routes that run turns.
func WithVoice(v VoiceSession) Option {
	return func(s *Server) { s.voice = v }
}

// WithConvAI enables the signed-url route.
func WithConvAI(c SignedURLer) Option {
	return func(s *Server) { s.convai = c }
}

// WithAudioFormats announces the PCM formats of the voice stream: in is
// what clients should send, out is what synthesis produces.
func WithAudioFormats(in, out audio.Format) Option {
	return func(s *Server) {
		s.inFormat = in
		s.outFormat = out
	}
}

// WithOriginPatterns allows cross-origin WebSocket connections from hosts
// matching the given patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = patterns }
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store          *store.Store
	assets         AssetLookup
	voice          VoiceSession
	convai         SignedURLer
	inFormat       audio.Format
	outFormat      audio.Format
	originPatterns []string
}

// New returns a Server reading and mutating st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:     st,
		inFormat:  audio.Format{SampleRate: 16000, Channels: 1},
		outFormat: audio.Format{SampleRate: 16000, Channels: 1},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/assets", s.getAssets)
		api.GET("/assets/:id", s.getAsset)
		api.GET("/summary", s.getSummary)
		api.POST("/refresh", s.refresh)
		api.GET("/bit10", s.getBIT10)

		pf := api.Group("/portfolio")
		{
			pf.GET("", s.getPortfolio)
			pf.POST("", s.addHolding)
			pf.DELETE("/:id", s.removeHolding)
		}

		v := api.Group("/voice")
		{
			v.GET("", s.getVoice)
			v.POST("/ask", s.ask)
			v.POST("/stop", s.stop)
			v.GET("/stream", s.stream)
			v.GET("/conversation/signed-url", s.signedURL)
		}
	}
}

// Handler returns a gin engine serving the API, with panic recovery and
// request logging through slog.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s.Register(r)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		observe.Logger(c.Request.Context()).Log(c.Request.Context(), level, "api: request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
