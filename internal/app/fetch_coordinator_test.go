package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/tubequeue/internal/domain"
)

// mockExtractor is a controllable stand-in for the external extraction
// service, shared across the app package tests.
type mockExtractor struct {
	mu sync.Mutex

	metadataByURL map[string]*domain.MediaInfo
	metadataErr   error
	metadataCalls int32
	metadataDelay time.Duration

	searchResults []domain.SearchResultEntry
	searchErr     error
	searchCalls   []int

	downloadErr      error
	downloadErrByURL map[string]error
	downloadDelay    time.Duration
	downloadPath  string
	downloaded    []string
	activeNow     int32
	maxActive     int32

	toolsErr error
}

func newMockExtractor() *mockExtractor {
	return &mockExtractor{
		metadataByURL: make(map[string]*domain.MediaInfo),
		downloadPath:  "/tmp/output.mp4",
	}
}

func (m *mockExtractor) FetchMetadata(ctx context.Context, url string) (*domain.MediaInfo, error) {
	atomic.AddInt32(&m.metadataCalls, 1)
	active := atomic.AddInt32(&m.activeNow, 1)
	defer atomic.AddInt32(&m.activeNow, -1)
	for {
		prev := atomic.LoadInt32(&m.maxActive)
		if active <= prev || atomic.CompareAndSwapInt32(&m.maxActive, prev, active) {
			break
		}
	}
	if m.metadataDelay > 0 {
		select {
		case <-time.After(m.metadataDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	if info, ok := m.metadataByURL[url]; ok {
		return info, nil
	}
	return &domain.MediaInfo{ID: "gen", Title: "Title for " + url}, nil
}

func (m *mockExtractor) Search(ctx context.Context, query string, limit int) ([]domain.SearchResultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, limit)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit > len(m.searchResults) {
		limit = len(m.searchResults)
	}
	return m.searchResults[:limit], nil
}

func (m *mockExtractor) Download(ctx context.Context, req domain.DownloadRequest, progress domain.ProgressFunc) (string, error) {
	if m.downloadDelay > 0 {
		select {
		case <-time.After(m.downloadDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloaded = append(m.downloaded, req.URL)
	if err, ok := m.downloadErrByURL[req.URL]; ok {
		return "", err
	}
	if m.downloadErr != nil {
		return "", m.downloadErr
	}
	if progress != nil {
		progress(512, 1024)
		progress(1024, 1024)
	}
	return m.downloadPath, nil
}

func (m *mockExtractor) CheckTools() error {
	return m.toolsErr
}

func (m *mockExtractor) downloadedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.downloaded))
	copy(out, m.downloaded)
	return out
}

func drainWithin(t *testing.T, bus *EventBus, want int) []domain.Event {
	t.Helper()
	var events []domain.Event
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events = append(events, bus.Drain()...)
		if len(events) >= want {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", want, len(events))
	return nil
}

func testExtractorConfig() domain.ExtractorConfig {
	return domain.ExtractorConfig{
		MetadataTimeout: 2 * time.Second,
		SearchTimeout:   2 * time.Second,
	}
}

func TestFetchCoordinator_MetadataSuccessPostsItemUpdate(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataByURL["https://youtu.be/a"] = &domain.MediaInfo{
		Title:        "A Video",
		ThumbnailURL: "https://example.com/t.jpg",
	}

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	fc.FetchItemMetadata(1, "https://youtu.be/a")

	events := drainWithin(t, bus, 1)
	assert.Equal(t, domain.EventItemUpdate, events[0].Type)
	assert.Equal(t, int64(1), events[0].ItemID)
	assert.Equal(t, "A Video", events[0].Title)
	assert.Equal(t, "https://example.com/t.jpg", events[0].ThumbnailURL)
}

func TestFetchCoordinator_MetadataFailurePostsSingleLogEvent(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataErr = errors.New("extraction failed")

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	fc.FetchItemMetadata(1, "https://youtu.be/a")

	events := drainWithin(t, bus, 1)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventLog, events[0].Type)
	assert.Contains(t, events[0].Message, "extraction failed")
}

func TestFetchCoordinator_ConcurrencyIsBounded(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataDelay = 30 * time.Millisecond

	fc := NewFetchCoordinator(extractor, bus, 6, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	// a bulk paste of 30 inputs must never run more than 6 lookups at once
	for i := 0; i < 30; i++ {
		fc.FetchItemMetadata(int64(i+1), fmt.Sprintf("https://youtu.be/%d", i))
	}

	drainWithin(t, bus, 30)
	assert.LessOrEqual(t, atomic.LoadInt32(&extractor.maxActive), int32(6))
}

func TestFetchCoordinator_InFlightDedup(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataDelay = 50 * time.Millisecond

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	assert.True(t, fc.submit("dup-key", func() { time.Sleep(50 * time.Millisecond) }))
	assert.False(t, fc.submit("dup-key", func() {}))
}

func TestFetchCoordinator_SessionCacheAvoidsRefetch(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	fc.FetchItemMetadata(1, "https://youtu.be/a")
	drainWithin(t, bus, 1)

	// second item for the same locator reuses the cached metadata
	fc.FetchItemMetadata(2, "https://youtu.be/a")
	events := drainWithin(t, bus, 1)

	assert.Equal(t, domain.EventItemUpdate, events[0].Type)
	assert.Equal(t, int64(2), events[0].ItemID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.metadataCalls))
}

func TestFetchCoordinator_MetadataReturnsFormats(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataByURL["https://youtu.be/a"] = &domain.MediaInfo{
		Title: "A Video",
		Formats: []domain.FormatDescriptor{
			{ID: "22", Height: 720, HasAudio: true, HasVideo: true, URL: "https://cdn.example.com/22"},
		},
	}

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	info, err := fc.Metadata(context.Background(), "https://youtu.be/a")
	assert.NoError(t, err)
	assert.Equal(t, "A Video", info.Title)
	assert.Len(t, info.Formats, 1)

	// second call hits the session cache
	_, err = fc.Metadata(context.Background(), "https://youtu.be/a")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.metadataCalls))
}

func TestFetchCoordinator_ConcurrentMetadataSharesOneLookup(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.metadataDelay = 50 * time.Millisecond

	fc := NewFetchCoordinator(extractor, bus, 4, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := fc.Metadata(context.Background(), "https://youtu.be/shared")
			assert.NoError(t, err)
			assert.NotNil(t, info)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.metadataCalls))
}

func TestFetchCoordinator_SearchPageCachesByQueryAndLimit(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.searchResults = []domain.SearchResultEntry{
		{ID: "v1", Title: "First"},
		{ID: "v2", Title: "Second"},
	}

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	got, err := fc.SearchPage(context.Background(), "some query", 2)
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	again, err := fc.SearchPage(context.Background(), "some query", 2)
	assert.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, []int{2}, extractor.searchCalls)

	// a larger page is a distinct request, not a cache hit
	_, err = fc.SearchPage(context.Background(), "some query", 4)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 4}, extractor.searchCalls)
}

func TestFetchCoordinator_SearchPageErrorsAreNotCached(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()
	extractor.searchErr = errors.New("service unavailable")

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	defer fc.Stop()

	_, err := fc.SearchPage(context.Background(), "flaky", 5)
	assert.Error(t, err)

	extractor.mu.Lock()
	extractor.searchErr = nil
	extractor.mu.Unlock()

	results, err := fc.SearchPage(context.Background(), "flaky", 5)
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, []int{5, 5}, extractor.searchCalls)
}

func TestFetchCoordinator_RejectsAfterStop(t *testing.T) {
	bus := NewEventBus()
	extractor := newMockExtractor()

	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	fc.Stop()

	assert.False(t, fc.submit("late", func() {}))

	_, err := fc.Metadata(context.Background(), "https://youtu.be/late")
	assert.ErrorIs(t, err, ErrCoordinatorStopped)

	_, err = fc.SearchPage(context.Background(), "late", 5)
	assert.ErrorIs(t, err, ErrCoordinatorStopped)
}
