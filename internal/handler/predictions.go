package handler

import (
	"net/http"
	"strconv"
	"strings"

	"sequoia/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetPredictions godoc
// @Summary      Get recent predictions for a model key
// @Description  Returns the newest stored probabilities for a model key, newest first
// @Tags         predictions
// @Produce      json
// @Param        key     path   string  true   "Model key"
// @Param        symbol  query  string  false  "Instrument symbol (defaults to SPX)"
// @Param        limit   query  int     false  "Number of predictions (default 20, max 200)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/predictions/{key} [get]
func (h *Handler) GetPredictions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-predictions")
	defer span.End()

	key := c.Param("key")
	span.SetAttributes(attribute.String("model_key", key))

	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		symbol = domain.DefaultSymbol
	}
	limit := 20
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	preds, err := h.predictions.ListRecent(ctx, key, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_key":   key,
		"symbol":      symbol,
		"count":       len(preds),
		"predictions": preds,
	})
}
