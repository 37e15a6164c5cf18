package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/api"
	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/infrastructure"
	"github.com/yourusername/tubequeue/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ./configs, ~/.tubequeue)")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Multi-output logger with separate category files
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   cfg.Logging.Level,
		LogsDir: cfg.Logging.LogsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer multiLog.Close()

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting tubequeue server",
		zap.String("output_dir", cfg.Download.OutputDir),
		zap.Int("fetch_pool", cfg.Fetch.PoolSize))

	if err := os.MkdirAll(cfg.Download.OutputDir, 0755); err != nil {
		log.Fatal("Failed to create output directory", zap.Error(err))
	}

	extractor := infrastructure.NewYTDLPExtractor(cfg.Extractor, cfg.Logging.LogsDir, multiLog)
	if err := extractor.CheckTools(); err != nil {
		// Degraded start: the queue still accepts items, downloads will
		// refuse to start until the tools show up.
		log.Warn("External tools unavailable", zap.Error(err))
	}

	history, err := infrastructure.NewSQLiteHistoryRepository(cfg.History.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize history store", zap.Error(err))
	}
	defer history.Close()

	notifier := infrastructure.NewNotificationService(&cfg.Notification, log)

	bus := app.NewEventBus()

	coordinator := app.NewFetchCoordinator(extractor, bus, cfg.Fetch.PoolSize, cfg.Extractor, multiLog)
	coordinator.Start()

	queue := app.NewQueueManager(bus, coordinator, multiLog)
	resolver := app.NewFormatResolver(cfg.Download.PreferredContainer)
	worker := app.NewWorker(queue, extractor, coordinator, resolver, history, notifier, bus, cfg.Download, multiLog)
	paginator := app.NewSearchPaginator(coordinator, cfg.Search)

	loop := app.NewEventLoop(bus, queue, cfg.Events.PollInterval)
	loop.Start()

	router := api.SetupRouter(api.Deps{
		Queue:     queue,
		Worker:    worker,
		Paginator: paginator,
		Resolver:  resolver,
		Loop:      loop,
		Fetcher:   coordinator,
		History:   history,
		LogsDir:   cfg.Logging.LogsDir,
		Logger:    log,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop the worker first so no new downloads begin, then drain
	// remaining events before the bus goes quiet.
	worker.Stop()
	worker.Wait()
	coordinator.Stop()
	loop.Stop()

	log.Info("Server exited")
}
