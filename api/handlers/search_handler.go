package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/app"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	paginator *app.SearchPaginator
	logger    *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(paginator *app.SearchPaginator, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		paginator: paginator,
		logger:    logger,
	}
}

// Search handles GET /api/v1/search?q=...
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	results, err := h.paginator.Start(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
	})
}

// LoadMore handles POST /api/v1/search/more
func (h *SearchHandler) LoadMore(c *gin.Context) {
	results, err := h.paginator.LoadMore(c.Request.Context())
	if err != nil {
		h.logger.Error("Load more failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// an empty delta means the service has nothing new; not an error
	c.JSON(http.StatusOK, gin.H{
		"query":   h.paginator.Query(),
		"results": results,
	})
}

// Refine handles GET /api/v1/search/refine?q=... over the accumulated
// result set, without a new fetch.
func (h *SearchHandler) Refine(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"query":   h.paginator.Query(),
		"results": h.paginator.Refine(c.Query("q")),
	})
}
