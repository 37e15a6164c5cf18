package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/api/handlers"
	"github.com/yourusername/tubequeue/api/middleware"
	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// Deps bundles everything the HTTP surface exposes
type Deps struct {
	Queue     *app.QueueManager
	Worker    *app.Worker
	Paginator *app.SearchPaginator
	Resolver  *app.FormatResolver
	Loop      *app.EventLoop
	Fetcher   *app.FetchCoordinator
	History   domain.HistoryRepository
	LogsDir   string
	Logger    *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Queue, deps.Worker)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		queueHandler := handlers.NewQueueHandler(deps.Queue, deps.Worker, deps.Logger)
		queue := v1.Group("/queue")
		{
			queue.POST("", queueHandler.Submit)
			queue.GET("", queueHandler.List)
			queue.DELETE("", queueHandler.Clear)
			queue.POST("/start", queueHandler.Start)
			queue.POST("/stop", queueHandler.Stop)
			queue.GET("/:id", queueHandler.Get)
			queue.DELETE("/:id", queueHandler.Remove)
			queue.PATCH("/:id/quality", queueHandler.SetQuality)
		}

		searchHandler := handlers.NewSearchHandler(deps.Paginator, deps.Logger)
		search := v1.Group("/search")
		{
			search.GET("", searchHandler.Search)
			search.POST("/more", searchHandler.LoadMore)
			search.GET("/refine", searchHandler.Refine)
		}

		formatHandler := handlers.NewFormatHandler(deps.Fetcher, deps.Resolver, deps.Logger)
		v1.GET("/formats", formatHandler.Resolve)

		historyHandler := handlers.NewHistoryHandler(deps.History, deps.Logger)
		history := v1.Group("/history")
		{
			history.GET("", historyHandler.List)
			history.GET("/stats", historyHandler.Stats)
		}

		logHandler := handlers.NewLogHandler(deps.Loop, logger.NewLogReader(deps.LogsDir))
		v1.GET("/logs", logHandler.Recent)
		v1.GET("/logs/files", logHandler.Files)

		wsHandler := handlers.NewEventWebSocketHandler(deps.Loop, deps.Logger)
		v1.GET("/events/ws", wsHandler.HandleWebSocket)
	}

	return router
}
