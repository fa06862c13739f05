package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/basket-tracker/internal/services"
)

type PortfolioHandler struct {
	portfolio *services.PortfolioService
}

func NewPortfolioHandler(portfolio *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// GetLive aggregates the basket now. Fetch failures show up as warnings.
func (h *PortfolioHandler) GetLive(c *gin.Context) {
	view, _, err := h.portfolio.Live(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Refresh purges cached returns
func (h *PortfolioHandler) Refresh(c *gin.Context) {
	h.portfolio.Refresh()
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

// SaveSnapshot records the live aggregation as today's snapshot
func (h *PortfolioHandler) SaveSnapshot(c *gin.Context) {
	report, err := h.portfolio.SaveLive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}
