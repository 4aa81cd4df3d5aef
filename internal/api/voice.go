package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MrWong99/bit10voice/internal/convai"
	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/voice"
)

func (s *Server) getVoice(c *gin.Context) {
	snap := s.store.Snapshot()
	state := voice.Idle
	if s.voice != nil {
		state = s.voice.State()
	}
	c.JSON(http.StatusOK, gin.H{
		"state":        state.String(),
		"voice":        snap.Voice,
		"conversation": snap.Conversation,
	})
}

type askRequest struct {
	Text string `json:"text" binding:"required"`
}

// ask answers a typed question through the voice session without
// playback, so it shows up in the conversation like a spoken one.
func (s *Server) ask(c *gin.Context) {
	if s.voice == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice assistant is not enabled"})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	res, err := s.voice.Ask(c.Request.Context(), req.Text, nil)
	if err != nil {
		c.JSON(turnStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) stop(c *gin.Context) {
	if s.voice == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice assistant is not enabled"})
		return
	}
	s.voice.Stop()
	c.Status(http.StatusNoContent)
}

func (s *Server) signedURL(c *gin.Context) {
	if s.convai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": convai.ErrNotConfigured.Error()})
		return
	}
	ctx := c.Request.Context()
	u, err := s.convai.SignedURL(ctx)
	switch {
	case errors.Is(err, convai.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		observe.Logger(ctx).Warn("api: signed url failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get signed URL"})
	default:
		c.JSON(http.StatusOK, gin.H{"signed_url": u})
	}
}

// turnStatus maps voice turn errors to HTTP status codes.
func turnStatus(err error) int {
	switch {
	case errors.Is(err, voice.ErrBusy), errors.Is(err, voice.ErrStopped):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
