package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/domain"
)

// FormatHandler exposes format resolution for the quality picker.
// Lookups run through the fetch coordinator so they share the bounded
// pool, in-flight de-dup and session cache with enqueue-time fetches.
type FormatHandler struct {
	fetcher  *app.FetchCoordinator
	resolver *app.FormatResolver
	logger   *zap.Logger
}

// NewFormatHandler creates a new format handler
func NewFormatHandler(fetcher *app.FetchCoordinator, resolver *app.FormatResolver, logger *zap.Logger) *FormatHandler {
	return &FormatHandler{
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve handles GET /api/v1/formats?url=...
func (h *FormatHandler) Resolve(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter url"})
		return
	}

	info, err := h.fetcher.Metadata(c.Request.Context(), url)
	if err != nil {
		h.logger.Error("Metadata fetch failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	res, err := h.resolver.Resolve(info.Formats)
	if err != nil {
		if errors.Is(err, domain.ErrNoPlayableFormat) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      info.Title,
		"choices":    res.Choices,
		"default":    res.Default,
		"webpage":    info.WebpageURL,
		"thumbnail":  info.ThumbnailURL,
		"duration_s": info.DurationSec,
	})
}
