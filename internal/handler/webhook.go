package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intake-service/internal/batch"
	"intake-service/internal/models"
	"intake-service/internal/normalizer"
	"intake-service/internal/service"
)

// Handler terminates the webhook surface. With a batcher configured events
// are acked immediately and classified asynchronously; without one the
// request blocks on the full pipeline so transient failures turn into a 500
// and the platform redelivers.
type Handler struct {
	pipeline *service.Pipeline
	batcher  *batch.Batcher
	logger   *zap.Logger
}

// NewHandler creates the webhook handler. batcher may be nil for synchronous
// operation.
func NewHandler(pipeline *service.Pipeline, batcher *batch.Batcher, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		batcher:  batcher,
		logger:   logger,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/slack/events", h.HandleEvent)

	api := r.Group("/api/v1")
	{
		api.GET("/stats", h.GetStats)
	}

	r.GET("/health", h.HealthCheck)
}

// HandleEvent processes one webhook delivery.
func (h *Handler) HandleEvent(c *gin.Context) {
	var env normalizer.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if env.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": env.Challenge})
		return
	}

	ev := normalizer.Normalize(&env)
	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"outcome": "ignored"})
		return
	}
	if ev.Bot {
		h.logger.Debug("bot message ignored",
			zap.String("channel", ev.ChannelID),
			zap.String("author", ev.AuthorID))
		c.JSON(http.StatusOK, gin.H{"outcome": "ignored"})
		return
	}

	if out := h.pipeline.Admit(ev); out != "" {
		c.JSON(http.StatusOK, gin.H{"outcome": string(out)})
		return
	}

	if h.batcher != nil {
		h.batcher.Add(ev)
		c.JSON(http.StatusOK, gin.H{"outcome": "accepted"})
		return
	}

	out, err := h.pipeline.Dispatch(c.Request.Context(), []*models.NormalizedEvent{ev})
	if err != nil {
		h.logger.Error("pipeline failed, requesting redelivery",
			zap.String("event_id", ev.EventID),
			zap.String("channel", ev.ChannelID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": string(out)})
}

// GetStats returns pipeline counters.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Snapshot())
}

// HealthCheck returns service health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "intake-service",
		"version": "1.0.0",
	})
}
