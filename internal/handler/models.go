package handler

import (
	"net/http"
	"strconv"

	"sequoia/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetModel godoc
// @Summary      Get the latest model version for a key
// @Description  Returns the newest registry entry for a model key, metrics included, artifact excluded
// @Tags         models
// @Produce      json
// @Param        key  path  string  true  "Model key (seqboot_bagging or standard_bagging)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/models/{key} [get]
func (h *Handler) GetModel(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-model")
	defer span.End()

	key := c.Param("key")
	span.SetAttributes(attribute.String("model_key", key))

	model, err := h.registry.GetLatestModel(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if model == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no versions for model key " + key})
		return
	}

	c.JSON(http.StatusOK, modelSummary(*model))
}

// ListModelVersions godoc
// @Summary      List model versions for a key
// @Description  Returns the newest versions for a model key, newest first
// @Tags         models
// @Produce      json
// @Param        key    path   string  true   "Model key"
// @Param        limit  query  int     false  "Number of versions (default 10)"  default(10)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/models/{key}/versions [get]
func (h *Handler) ListModelVersions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-model-versions")
	defer span.End()

	key := c.Param("key")
	span.SetAttributes(attribute.String("model_key", key))

	limit := 10
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	versions, err := h.registry.ListModelVersions(ctx, key, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(versions))
	for _, v := range versions {
		out = append(out, modelSummary(v))
	}
	c.JSON(http.StatusOK, gin.H{
		"model_key": key,
		"versions":  out,
	})
}

func modelSummary(m domain.ModelVersion) gin.H {
	return gin.H{
		"id":              m.ID,
		"model_key":       m.ModelKey,
		"version":         m.Version,
		"feature_version": m.FeatureVersion,
		"trained_from":    m.TrainedFrom,
		"trained_to":      m.TrainedTo,
		"trained_at":      m.TrainedAt,
		"hyperparams":     m.HyperparamsJSON,
		"metrics":         m.MetricsJSON,
		"is_active":       m.IsActive,
		"activated_at":    m.ActivatedAt,
	}
}
