package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type explainRequest struct {
	Question string `json:"question" binding:"required"`
}

// Explain godoc
// @Summary      Ask the advisor about the latest training runs
// @Description  Sends a question, along with the latest run metrics, to the LLM advisor
// @Tags         advisor
// @Accept       json
// @Produce      json
// @Param        request  body  explainRequest  true  "Question about the model runs"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/explain [post]
func (h *Handler) Explain(c *gin.Context) {
	if h.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advisor unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.explain")
	defer span.End()

	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := h.advisor.ExplainRun(ctx, req.Question)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
