package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/domain"
)

// QueueHandler handles queue-related HTTP requests
type QueueHandler struct {
	queue  *app.QueueManager
	worker *app.Worker
	logger *zap.Logger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queue *app.QueueManager, worker *app.Worker, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{
		queue:  queue,
		worker: worker,
		logger: logger,
	}
}

// SubmitRequest represents a request to add inputs to the queue
type SubmitRequest struct {
	Input   string `json:"input" binding:"required"`
	Kind    string `json:"kind,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// Submit handles POST /api/v1/queue
func (h *QueueHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := domain.TargetKind(req.Kind)
	if req.Kind == "" {
		kind = domain.KindVideo
	}

	result, err := h.queue.Submit(req.Input, kind, req.Quality)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/v1/queue
func (h *QueueHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Snapshot())
}

// Get handles GET /api/v1/queue/:id
func (h *QueueHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, ok := h.queue.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// Remove handles DELETE /api/v1/queue/:id. Removing an id that no
// longer exists succeeds; removal is idempotent.
func (h *QueueHandler) Remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	h.queue.Remove(id)
	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

// SetQualityRequest carries an explicit format choice for one item
type SetQualityRequest struct {
	Quality string `json:"quality" binding:"required"`
	Label   string `json:"label,omitempty"`
}

// SetQuality handles PATCH /api/v1/queue/:id/quality. Applies a choice
// from the format list to a still-pending item.
func (h *QueueHandler) SetQuality(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req SetQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.queue.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	if !h.queue.SetQuality(id, req.Quality, req.Label) {
		c.JSON(http.StatusConflict, gin.H{"error": "item is no longer pending"})
		return
	}

	item, _ := h.queue.Get(id)
	c.JSON(http.StatusOK, item)
}

// Clear handles DELETE /api/v1/queue
func (h *QueueHandler) Clear(c *gin.Context) {
	h.queue.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "queue cleared"})
}

// Start handles POST /api/v1/queue/start
func (h *QueueHandler) Start(c *gin.Context) {
	if err := h.worker.Start(); err != nil {
		var missing *domain.ToolMissingError
		if errors.As(err, &missing) {
			c.JSON(http.StatusFailedDependency, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "worker started"})
}

// Stop handles POST /api/v1/queue/stop
func (h *QueueHandler) Stop(c *gin.Context) {
	h.worker.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "stop requested"})
}
