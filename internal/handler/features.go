package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetFeatureRows godoc
// @Summary      Get engineered feature rows
// @Description  Returns feature rows for a symbol over a trailing window, oldest first; labeled=true keeps only rows whose barriers have resolved
// @Tags         features
// @Produce      json
// @Param        symbol   path   string  true   "Instrument symbol (e.g., SPX)"
// @Param        days     query  int     false  "Trailing window in days (default 30, max 3650)"  default(30)
// @Param        labeled  query  bool    false  "Only rows with a resolved label"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/features/{symbol} [get]
func (h *Handler) GetFeatureRows(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-feature-rows")
	defer span.End()

	if h.features == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feature store is not available"})
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	days := 30
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 3650 {
			days = n
		}
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	labeledOnly := c.Query("labeled") == "true"
	span.SetAttributes(attribute.Bool("labeled_only", labeledOnly))

	list := h.features.ListRows
	if labeledOnly {
		list = h.features.ListLabeledRows
	}
	rows, err := list(ctx, symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"count":  len(rows),
		"rows":   rows,
	})
}
