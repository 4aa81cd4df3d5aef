package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MrWong99/bit10voice/internal/bit10"
	"github.com/MrWong99/bit10voice/internal/observe"
)

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) getAssets(c *gin.Context) {
	snap := s.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"assets":     snap.Assets,
		"loading":    snap.Loading,
		"updated_at": snap.UpdatedAt,
	})
}

// getAsset matches :id against the ids and symbols of the current snapshot
// first and asks the upstream only for assets outside it.
func (s *Server) getAsset(c *gin.Context) {
	id := strings.ToLower(strings.TrimSpace(c.Param("id")))
	for _, a := range s.store.Snapshot().Assets {
		if a.ID == id || strings.EqualFold(a.Symbol, id) {
			c.JSON(http.StatusOK, a)
			return
		}
	}
	if s.assets != nil {
		if a, ok := s.assets.AssetByID(c.Request.Context(), id); ok {
			c.JSON(http.StatusOK, a)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
}

func (s *Server) getSummary(c *gin.Context) {
	snap := s.store.Snapshot()
	if snap.Summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market data has not been loaded yet"})
		return
	}
	c.JSON(http.StatusOK, snap.Summary)
}

func (s *Server) refresh(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.store.Refresh(ctx); err != nil {
		observe.Logger(ctx).Warn("api: refresh failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) getBIT10(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"about":   bit10.About,
		"indices": bit10.Indices(),
	})
}
