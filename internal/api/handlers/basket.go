package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/services"
	"github.com/codyseavey/basket-tracker/internal/store"
)

type BasketHandler struct {
	portfolio *services.PortfolioService
}

func NewBasketHandler(portfolio *services.PortfolioService) *BasketHandler {
	return &BasketHandler{portfolio: portfolio}
}

// GetBasket returns the basket, largest allocation first
func (h *BasketHandler) GetBasket(c *gin.Context) {
	entries, err := h.portfolio.ListBasket(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *BasketHandler) SaveEntry(c *gin.Context) {
	var req models.SaveBasketEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.portfolio.SaveEntry(c.Request.Context(), req.Symbol, req.URL, req.Allocation)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpdateEntry replaces the url and allocation of the entry named in the path
func (h *BasketHandler) UpdateEntry(c *gin.Context) {
	var req models.SaveBasketEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.portfolio.UpdateEntry(c.Request.Context(), c.Param("symbol"), req.URL, req.Allocation)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *BasketHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "basket entry not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *BasketHandler) DeleteEntry(c *gin.Context) {
	if err := h.portfolio.DeleteEntry(c.Request.Context(), c.Param("symbol")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "basket entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
