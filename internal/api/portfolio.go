package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrWong99/bit10voice/internal/store"
)

func (s *Server) getPortfolio(c *gin.Context) {
	snap := s.store.Snapshot()
	resp := gin.H{"holdings": snap.Holdings}
	if v, ok := snap.Valuation(); ok {
		resp["valuation"] = v
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) addHolding(c *gin.Context) {
	var in store.HoldingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	h, ok := s.store.AddHolding(in)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol, a non-negative amount and a positive purchase_price are required"})
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) removeHolding(c *gin.Context) {
	if !s.store.RemoveHolding(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
