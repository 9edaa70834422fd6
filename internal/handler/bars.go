package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetBars godoc
// @Summary      Get recent price bars
// @Description  Returns the newest stored bars for a symbol, newest first
// @Tags         bars
// @Produce      json
// @Param        symbol  path   string  true   "Instrument symbol (e.g., SPX)"
// @Param        limit   query  int     false  "Number of bars (default 100, max 1000)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/bars/{symbol} [get]
func (h *Handler) GetBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bars")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	bars, err := h.bars.GetRecentBars(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"count":  len(bars),
		"bars":   bars,
	})
}

// ImportBars godoc
// @Summary      Import bars from CSV
// @Description  Reads a CSV body with date_time and close columns (open, high, low, volume optional) and stores the bars
// @Tags         bars
// @Accept       text/csv
// @Produce      json
// @Param        symbol  query  string  false  "Instrument symbol (defaults to SPX)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/bars/import [post]
func (h *Handler) ImportBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.import-bars")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	count, err := h.bars.ImportCSV(ctx, c.Request.Body, symbol)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"imported": count,
	})
}
