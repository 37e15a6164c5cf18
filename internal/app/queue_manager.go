package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// MetadataFetcher launches an asynchronous title/thumbnail lookup for
// an enqueued item. Implemented by the fetch coordinator.
type MetadataFetcher interface {
	FetchItemMetadata(itemID int64, url string)
}

// SubmitResult reports what Submit did with a block of user input:
// direct locators became queue items, free-text inputs became search
// queries for the paginator.
type SubmitResult struct {
	ItemIDs []int64  `json:"item_ids"`
	Queries []string `json:"queries,omitempty"`
}

// QueueManager owns the ordered download queue. Items are mutated only
// through its methods; every accessor hands out clones so readers never
// share memory with the live item.
type QueueManager struct {
	bus         *EventBus
	fetcher     MetadataFetcher
	multiLogger *logger.MultiLogger

	mu     sync.RWMutex
	nextID int64
	order  []int64
	items  map[int64]*domain.DownloadItem
}

// NewQueueManager creates an empty queue
func NewQueueManager(bus *EventBus, fetcher MetadataFetcher, multiLogger *logger.MultiLogger) *QueueManager {
	return &QueueManager{
		bus:         bus,
		fetcher:     fetcher,
		multiLogger: multiLogger,
		items:       make(map[int64]*domain.DownloadItem),
	}
}

// Submit splits pasted input and routes each piece: locators become
// queued items, anything else becomes a search query.
func (qm *QueueManager) Submit(text string, kind domain.TargetKind, quality string) (*SubmitResult, error) {
	if !domain.ValidateKind(kind) {
		return nil, fmt.Errorf("invalid target kind: %s", kind)
	}

	inputs := domain.SplitInputs(text)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	result := &SubmitResult{}
	for _, input := range inputs {
		if domain.ClassifyInput(input) == domain.InputLocator {
			result.ItemIDs = append(result.ItemIDs, qm.Enqueue(input, kind, quality))
		} else {
			result.Queries = append(result.Queries, input)
		}
	}
	return result, nil
}

// Enqueue appends a locator to the queue and kicks off its metadata
// fetch. Returns the new item's id.
func (qm *QueueManager) Enqueue(url string, kind domain.TargetKind, quality string) int64 {
	qm.mu.Lock()
	qm.nextID++
	item := domain.NewDownloadItem(qm.nextID, url, kind, quality)
	qm.items[item.ID] = item
	qm.order = append(qm.order, item.ID)
	id := item.ID
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("item_enqueued",
			zap.Int64("id", id),
			zap.String("url", url),
			zap.String("kind", string(kind)))
	}
	qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusQueued))

	if qm.fetcher != nil {
		if qm.MarkFetching(id) {
			qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusMetadataFetching))
		}
		qm.fetcher.FetchItemMetadata(id, url)
	}
	return id
}

// Remove takes an item out of the queue. Removing an unknown id is a
// no-op; removing the active download cancels it and lets the worker
// finish against a detached item.
func (qm *QueueManager) Remove(id int64) {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok {
		qm.mu.Unlock()
		return
	}
	item.MarkCancelled()
	delete(qm.items, id)
	for i, oid := range qm.order {
		if oid == id {
			qm.order = append(qm.order[:i], qm.order[i+1:]...)
			break
		}
	}
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("item_removed", zap.Int64("id", id))
	}
	qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusCancelled))
}

// Clear empties the queue. The active download, if any, is cancelled
// the same way Remove cancels it.
func (qm *QueueManager) Clear() {
	qm.mu.Lock()
	removed := make([]int64, len(qm.order))
	copy(removed, qm.order)
	for _, id := range qm.order {
		qm.items[id].MarkCancelled()
	}
	qm.items = make(map[int64]*domain.DownloadItem)
	qm.order = nil
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("queue_cleared", zap.Int("count", len(removed)))
	}
	for _, id := range removed {
		qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusCancelled))
	}
}

// Snapshot returns the queue in submission order. Every entry is a
// clone; callers can read it without holding any lock.
func (qm *QueueManager) Snapshot() []*domain.DownloadItem {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	out := make([]*domain.DownloadItem, 0, len(qm.order))
	for _, id := range qm.order {
		out = append(out, qm.items[id].Clone())
	}
	return out
}

// Get returns a clone of one item
func (qm *QueueManager) Get(id int64) (*domain.DownloadItem, bool) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	item, ok := qm.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Len reports how many items are in the queue
func (qm *QueueManager) Len() int {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return len(qm.order)
}

// NextPending returns a clone of the first item the worker may pick
// up, in submission order.
func (qm *QueueManager) NextPending() (*domain.DownloadItem, bool) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	for _, id := range qm.order {
		if qm.items[id].IsPending() {
			return qm.items[id].Clone(), true
		}
	}
	return nil, false
}

// MarkFetching flags an item while its metadata lookup is in flight
func (qm *QueueManager) MarkFetching(id int64) bool {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	item, ok := qm.items[id]
	if !ok {
		return false
	}
	return item.MarkMetadataFetching()
}

// ApplyMetadata attaches a fetched title and thumbnail and moves the
// item to standby. Called from the consumer loop only.
func (qm *QueueManager) ApplyMetadata(id int64, title, thumbnailURL string) bool {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok {
		qm.mu.Unlock()
		return false
	}
	if title != "" {
		item.Title = title
	}
	if thumbnailURL != "" {
		item.ThumbnailURL = thumbnailURL
	}
	moved := item.MarkStandby()
	qm.mu.Unlock()

	if moved {
		qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusStandby))
	}
	return moved
}

// SetQuality pins an explicit format choice on a pending item, as
// picked from a resolved format list. Refused once the download
// started or finished.
func (qm *QueueManager) SetQuality(id int64, token, label string) bool {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok || !item.SetQuality(token, label) {
		qm.mu.Unlock()
		return false
	}
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("quality_pinned",
			zap.Int64("id", id),
			zap.String("quality", token),
			zap.String("label", label))
	}
	return true
}

// BeginDownload transitions an item to downloading. Worker only.
func (qm *QueueManager) BeginDownload(id int64) bool {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok || !item.MarkDownloading() {
		qm.mu.Unlock()
		return false
	}
	qm.mu.Unlock()

	qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusDownloading))
	return true
}

// SetProgress records download progress for an item. Worker only; a
// no-op once the item was removed.
func (qm *QueueManager) SetProgress(id int64, percent float64) {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if ok {
		item.SetProgress(percent)
		percent = item.Progress
	}
	qm.mu.Unlock()

	if ok {
		qm.bus.Post(domain.ProgressEvent(id, percent))
	}
}

// Complete marks an item finished. Worker only.
func (qm *QueueManager) Complete(id int64, outputPath string) bool {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok || !item.MarkCompleted(outputPath) {
		qm.mu.Unlock()
		return false
	}
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("item_completed",
			zap.Int64("id", id),
			zap.String("output_path", outputPath))
	}
	qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusCompleted))
	return true
}

// Fail marks an item failed with its message. Worker only.
func (qm *QueueManager) Fail(id int64, err error) bool {
	qm.mu.Lock()
	item, ok := qm.items[id]
	if !ok || !item.MarkFailed(err) {
		qm.mu.Unlock()
		return false
	}
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent("item_failed",
			zap.Int64("id", id),
			zap.Error(err))
	}
	qm.bus.Post(domain.StatusChangeEvent(id, domain.StatusError))
	return true
}
