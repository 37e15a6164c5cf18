package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// FetchCoordinator runs metadata, format-list and search lookups on a
// fixed-size worker pool so a bulk paste never spawns unbounded
// goroutines. Fire-and-forget tasks post exactly one terminal event to
// the bus; synchronous lookups hand their result to the waiting caller.
// Results are cached for the session and lookups already in flight are
// never duplicated.
type FetchCoordinator struct {
	extractor   domain.Extractor
	bus         *EventBus
	cfg         domain.ExtractorConfig
	multiLogger *logger.MultiLogger

	poolSize int
	tasks    chan func()
	done     chan struct{}
	wg       sync.WaitGroup

	mu            sync.Mutex
	started       bool
	stopped       bool
	inFlight      map[string]bool
	cache         map[string]*domain.MediaInfo
	searchCache   map[string][]domain.SearchResultEntry
	metaWaiters   map[string][]chan metadataResult
	searchWaiters map[string][]chan searchPageResult
}

// ErrCoordinatorStopped is returned by synchronous lookups after Stop
var ErrCoordinatorStopped = errors.New("fetch coordinator stopped")

type metadataResult struct {
	info *domain.MediaInfo
	err  error
}

type searchPageResult struct {
	entries []domain.SearchResultEntry
	err     error
}

// NewFetchCoordinator creates a coordinator with the given pool size
func NewFetchCoordinator(extractor domain.Extractor, bus *EventBus, poolSize int, cfg domain.ExtractorConfig, multiLogger *logger.MultiLogger) *FetchCoordinator {
	if poolSize < 1 {
		poolSize = 1
	}
	return &FetchCoordinator{
		extractor:     extractor,
		bus:           bus,
		cfg:           cfg,
		multiLogger:   multiLogger,
		poolSize:      poolSize,
		tasks:         make(chan func(), poolSize*4),
		done:          make(chan struct{}),
		inFlight:      make(map[string]bool),
		cache:         make(map[string]*domain.MediaInfo),
		searchCache:   make(map[string][]domain.SearchResultEntry),
		metaWaiters:   make(map[string][]chan metadataResult),
		searchWaiters: make(map[string][]chan searchPageResult),
	}
}

// Start launches the worker pool
func (fc *FetchCoordinator) Start() {
	fc.mu.Lock()
	if fc.started {
		fc.mu.Unlock()
		return
	}
	fc.started = true
	n := fc.poolSize
	fc.mu.Unlock()

	for i := 0; i < n; i++ {
		fc.wg.Add(1)
		go func() {
			defer fc.wg.Done()
			for {
				select {
				case <-fc.done:
					return
				case task := <-fc.tasks:
					task()
				}
			}
		}()
	}
}

// Stop halts the pool. Tasks still queued are dropped; new
// submissions are rejected.
func (fc *FetchCoordinator) Stop() {
	fc.mu.Lock()
	if !fc.started || fc.stopped {
		fc.mu.Unlock()
		return
	}
	fc.stopped = true
	fc.mu.Unlock()

	close(fc.done)
	fc.wg.Wait()
}

// submit enqueues a task unless an identical key is already pending.
// The key is released when the task finishes.
func (fc *FetchCoordinator) submit(key string, fn func()) bool {
	fc.mu.Lock()
	if fc.stopped || fc.inFlight[key] {
		fc.mu.Unlock()
		return false
	}
	fc.inFlight[key] = true
	fc.mu.Unlock()

	wrapped := func() {
		defer func() {
			fc.mu.Lock()
			delete(fc.inFlight, key)
			fc.mu.Unlock()
		}()
		fn()
	}

	fc.dispatch(wrapped)
	return true
}

// dispatch hands a task to the pool. It never blocks the submitting
// thread; overflow parks on a goroutine while execution stays bounded
// by the pool size.
func (fc *FetchCoordinator) dispatch(fn func()) {
	select {
	case fc.tasks <- fn:
	default:
		go func() {
			select {
			case fc.tasks <- fn:
			case <-fc.done:
			}
		}()
	}
}

// cachedInfo returns the session-cached metadata for a locator
func (fc *FetchCoordinator) cachedInfo(url string) (*domain.MediaInfo, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	info, ok := fc.cache[url]
	return info, ok
}

func (fc *FetchCoordinator) storeInfo(url string, info *domain.MediaInfo) {
	fc.mu.Lock()
	fc.cache[url] = info
	fc.mu.Unlock()
}

// fetchInfo resolves metadata for a locator, consulting the cache
// first. Called from pool workers only.
func (fc *FetchCoordinator) fetchInfo(url string) (*domain.MediaInfo, error) {
	if info, ok := fc.cachedInfo(url); ok {
		return info, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), fc.cfg.MetadataTimeout)
	defer cancel()

	info, err := fc.extractor.FetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	fc.storeInfo(url, info)
	return info, nil
}

// FetchItemMetadata resolves title and thumbnail for a queue item,
// posting an ItemUpdate on success or a Log event on failure.
func (fc *FetchCoordinator) FetchItemMetadata(itemID int64, url string) {
	key := fmt.Sprintf("item-meta:%d", itemID)
	fc.submit(key, func() {
		info, err := fc.fetchInfo(url)
		if err != nil {
			if fc.multiLogger != nil {
				fc.multiLogger.LogFetchEvent("metadata_fetch_failed",
					zap.Int64("item_id", itemID),
					zap.String("url", url),
					zap.Error(err))
			}
			fc.bus.Post(domain.LogEvent(fmt.Sprintf("metadata fetch failed for %s: %v", url, err)))
			return
		}

		if fc.multiLogger != nil {
			fc.multiLogger.LogFetchEvent("metadata_fetched",
				zap.Int64("item_id", itemID),
				zap.String("title", info.Title))
		}
		fc.bus.Post(domain.ItemUpdateEvent(itemID, info.Title, info.ThumbnailURL))
	})
}

// Metadata resolves metadata for a locator on the fetch pool and
// blocks the caller until it lands. Session-cached results return
// immediately; concurrent requests for the same locator share one
// lookup instead of duplicating it.
func (fc *FetchCoordinator) Metadata(ctx context.Context, url string) (*domain.MediaInfo, error) {
	key := "meta:" + url

	fc.mu.Lock()
	if fc.stopped {
		fc.mu.Unlock()
		return nil, ErrCoordinatorStopped
	}
	if info, ok := fc.cache[url]; ok {
		fc.mu.Unlock()
		return info, nil
	}
	ch := make(chan metadataResult, 1)
	fc.metaWaiters[key] = append(fc.metaWaiters[key], ch)
	launch := !fc.inFlight[key]
	if launch {
		fc.inFlight[key] = true
	}
	fc.mu.Unlock()

	if launch {
		fc.dispatch(func() {
			info, err := fc.fetchInfo(url)
			if err != nil && fc.multiLogger != nil {
				fc.multiLogger.LogFetchEvent("metadata_fetch_failed",
					zap.String("url", url),
					zap.Error(err))
			}

			// waiter drain and in-flight release happen atomically so a
			// late joiner either sees the running task or the cache
			fc.mu.Lock()
			waiters := fc.metaWaiters[key]
			delete(fc.metaWaiters, key)
			delete(fc.inFlight, key)
			fc.mu.Unlock()

			for _, w := range waiters {
				w <- metadataResult{info: info, err: err}
			}
		})
	}

	select {
	case res := <-ch:
		return res.info, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fc.done:
		return nil, ErrCoordinatorStopped
	}
}

// SearchPage runs a ranked query on the fetch pool and blocks the
// caller until results land. Pages are cached for the session by
// (query, limit); identical in-flight queries are shared.
func (fc *FetchCoordinator) SearchPage(ctx context.Context, query string, limit int) ([]domain.SearchResultEntry, error) {
	key := fmt.Sprintf("search:%s:%d", query, limit)

	fc.mu.Lock()
	if fc.stopped {
		fc.mu.Unlock()
		return nil, ErrCoordinatorStopped
	}
	if entries, ok := fc.searchCache[key]; ok {
		fc.mu.Unlock()
		return entries, nil
	}
	ch := make(chan searchPageResult, 1)
	fc.searchWaiters[key] = append(fc.searchWaiters[key], ch)
	launch := !fc.inFlight[key]
	if launch {
		fc.inFlight[key] = true
	}
	fc.mu.Unlock()

	if launch {
		fc.dispatch(func() {
			sctx, cancel := context.WithTimeout(context.Background(), fc.cfg.SearchTimeout)
			entries, err := fc.extractor.Search(sctx, query, limit)
			cancel()

			if err != nil && fc.multiLogger != nil {
				fc.multiLogger.LogFetchEvent("search_failed",
					zap.String("query", query),
					zap.Error(err))
			}

			fc.mu.Lock()
			if err == nil {
				fc.searchCache[key] = entries
			}
			waiters := fc.searchWaiters[key]
			delete(fc.searchWaiters, key)
			delete(fc.inFlight, key)
			fc.mu.Unlock()

			for _, w := range waiters {
				w <- searchPageResult{entries: entries, err: err}
			}
		})
	}

	select {
	case res := <-ch:
		return res.entries, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fc.done:
		return nil, ErrCoordinatorStopped
	}
}
