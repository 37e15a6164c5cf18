package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tubequeue/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	queue  *app.QueueManager
	worker *app.Worker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queue *app.QueueManager, worker *app.Worker) *HealthHandler {
	return &HealthHandler{
		queue:  queue,
		worker: worker,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Items         int  `json:"items"`
		WorkerRunning bool `json:"worker_running"`
	} `json:"queue"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Queue.Items = h.queue.Len()
	response.Queue.WorkerRunning = h.worker.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
