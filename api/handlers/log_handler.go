package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// LogHandler serves the in-memory activity log kept by the event loop
// and the dated per-category log files on disk.
type LogHandler struct {
	loop   *app.EventLoop
	reader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(loop *app.EventLoop, reader *logger.LogReader) *LogHandler {
	return &LogHandler{loop: loop, reader: reader}
}

// Recent handles GET /api/v1/logs
func (h *LogHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	c.JSON(http.StatusOK, gin.H{"lines": h.loop.RecentLogs(limit)})
}

// Files handles GET /api/v1/logs/files?category=queue&date=20260831&q=...
func (h *LogHandler) Files(c *gin.Context) {
	category := c.DefaultQuery("category", string(logger.CategoryQueue))
	if !logger.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown log category"})
		return
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("20060102", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYYMMDD"})
			return
		}
		date = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		entries []logger.LogEntry
		err     error
	)
	if query := c.Query("q"); query != "" {
		entries, err = h.reader.SearchLogs(logger.LogCategory(category), date, query, limit)
	} else {
		entries, err = h.reader.ReadLogs(logger.LogCategory(category), date, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"date":     date.Format("20060102"),
		"entries":  entries,
	})
}
