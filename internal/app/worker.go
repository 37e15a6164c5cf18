package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// Notifier raises a desktop notice when a download finishes
type Notifier interface {
	NotifyDownloadCompleted(title, outputPath string)
	NotifyDownloadFailed(title string, err error)
	NotifyQueueEmpty()
}

// MetadataSource resolves locator metadata, serving session-cached
// results where available. Implemented by the fetch coordinator.
type MetadataSource interface {
	Metadata(ctx context.Context, url string) (*domain.MediaInfo, error)
}

// Worker drains the queue strictly one item at a time in submission
// order. A stop request is cooperative: the active download finishes
// or fails naturally, the next item is never started. One item's
// failure never halts the rest.
type Worker struct {
	queue       *QueueManager
	extractor   domain.Extractor
	metadata    MetadataSource
	resolver    *FormatResolver
	history     domain.HistoryRepository
	notifier    Notifier
	bus         *EventBus
	cfg         domain.DownloadConfig
	multiLogger *logger.MultiLogger

	mu      sync.Mutex
	running bool
	stop    bool
	wg      sync.WaitGroup
}

// NewWorker wires the sequential download executor
func NewWorker(
	queue *QueueManager,
	extractor domain.Extractor,
	metadata MetadataSource,
	resolver *FormatResolver,
	history domain.HistoryRepository,
	notifier Notifier,
	bus *EventBus,
	cfg domain.DownloadConfig,
	multiLogger *logger.MultiLogger,
) *Worker {
	return &Worker{
		queue:       queue,
		extractor:   extractor,
		metadata:    metadata,
		resolver:    resolver,
		history:     history,
		notifier:    notifier,
		bus:         bus,
		cfg:         cfg,
		multiLogger: multiLogger,
	}
}

// Start begins a processing run. Tooling is verified up front so a
// missing binary surfaces once instead of failing every item.
func (w *Worker) Start() error {
	if err := w.extractor.CheckTools(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker already running")
	}
	w.running = true
	w.stop = false
	w.mu.Unlock()

	if w.multiLogger != nil {
		w.multiLogger.LogQueueEvent("worker_started")
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop requests a cooperative stop. The in-flight download is allowed
// to finish; pending items stay queued for the next run.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stop = true
	w.mu.Unlock()

	if w.multiLogger != nil {
		w.multiLogger.LogQueueEvent("worker_stop_requested")
	}
}

// IsRunning reports whether a processing run is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Wait blocks until the current run finishes. Test and shutdown hook.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) stopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop
}

func (w *Worker) run() {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.bus.Post(domain.DoneEvent())
		if w.multiLogger != nil {
			w.multiLogger.LogQueueEvent("worker_finished")
		}
	}()

	for {
		// stop flag is checked between items, never mid-download
		if w.stopRequested() {
			return
		}
		item, ok := w.queue.NextPending()
		if !ok {
			// drained normally rather than stopped
			if w.notifier != nil {
				w.notifier.NotifyQueueEmpty()
			}
			return
		}
		w.processItem(item)
	}
}

// processItem runs one download end to end. Failures are translated
// into item state and events; nothing escapes to kill the run.
func (w *Worker) processItem(item *domain.DownloadItem) {
	if !w.queue.BeginDownload(item.ID) {
		// removed or already terminal between NextPending and here
		return
	}

	w.bus.Post(domain.LogEvent(fmt.Sprintf("downloading %s", item.DisplayTitle())))

	outputPath, err := w.download(item)
	if err != nil {
		w.queue.Fail(item.ID, err)
		w.bus.Post(domain.LogEvent(fmt.Sprintf("download failed for %s: %v", item.DisplayTitle(), err)))
		if w.multiLogger != nil {
			w.multiLogger.LogAppError("download failed",
				zap.Int64("id", item.ID),
				zap.String("url", item.URL),
				zap.Error(err))
		}
		if w.notifier != nil {
			w.notifier.NotifyDownloadFailed(item.DisplayTitle(), err)
		}
		w.record(item, domain.StatusError, "", err)
		return
	}

	if w.queue.Complete(item.ID, outputPath) {
		w.bus.Post(domain.LogEvent(fmt.Sprintf("completed %s", item.DisplayTitle())))
		if w.notifier != nil {
			w.notifier.NotifyDownloadCompleted(item.DisplayTitle(), outputPath)
		}
		w.record(item, domain.StatusCompleted, outputPath, nil)
	}
}

// download resolves the request and invokes the extraction service.
// The context is cancellation-only: downloads may legitimately run for
// a long time, so no deadline is applied.
func (w *Worker) download(item *domain.DownloadItem) (string, error) {
	req := domain.DownloadRequest{
		URL:          item.URL,
		Kind:         item.Kind,
		OutputDir:    w.cfg.OutputDir,
		Container:    w.cfg.PreferredContainer,
		AudioBitrate: fmt.Sprintf("%d", w.cfg.AudioBitrate),
	}

	if item.Kind == domain.KindVideo {
		expr, err := w.formatExpr(item)
		if err != nil {
			return "", err
		}
		req.FormatExpr = expr
	}

	progress := func(downloaded, total int64) {
		if total > 0 {
			w.queue.SetProgress(item.ID, float64(downloaded)/float64(total)*100)
		}
	}

	return w.extractor.Download(context.Background(), req, progress)
}

// formatExpr returns the explicit quality token when the user picked
// one, otherwise the resolver's computed default. The metadata lookup
// goes through the coordinator, which normally has the item's locator
// cached from its enqueue-time fetch.
func (w *Worker) formatExpr(item *domain.DownloadItem) (string, error) {
	if item.Quality != "" {
		return item.Quality, nil
	}

	info, err := w.metadata.Metadata(context.Background(), item.URL)
	if err != nil {
		return "", fmt.Errorf("format resolution: %w", err)
	}
	res, err := w.resolver.Resolve(info.Formats)
	if err != nil {
		return "", err
	}
	return res.Default.Expr, nil
}

// record persists the terminal outcome to history. History failures
// are logged, never propagated into item state.
func (w *Worker) record(item *domain.DownloadItem, status domain.ItemStatus, outputPath string, cause error) {
	if w.history == nil {
		return
	}

	entry := &domain.HistoryEntry{
		ID:         uuid.New().String(),
		URL:        item.URL,
		Title:      item.DisplayTitle(),
		Kind:       item.Kind,
		Quality:    item.Quality,
		Status:     status,
		OutputPath: outputPath,
		CreatedAt:  item.CreatedAt,
		FinishedAt: time.Now(),
	}
	if cause != nil {
		entry.ErrorDetail = cause.Error()
	}

	if err := w.history.Record(entry); err != nil && w.multiLogger != nil {
		w.multiLogger.LogAppError("history record failed",
			zap.Int64("id", item.ID),
			zap.Error(err))
	}
}
