package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/tubequeue/internal/domain"
)

type memoryHistory struct {
	mu      sync.Mutex
	entries []*domain.HistoryEntry
}

func (h *memoryHistory) Record(entry *domain.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memoryHistory) FindRecent(limit int) ([]*domain.HistoryEntry, error) { return nil, nil }
func (h *memoryHistory) FindByStatus(status domain.ItemStatus, limit int) ([]*domain.HistoryEntry, error) {
	return nil, nil
}
func (h *memoryHistory) Stats() (*domain.HistoryStats, error) { return nil, nil }
func (h *memoryHistory) Close() error                         { return nil }

func testDownloadConfig() domain.DownloadConfig {
	return domain.DownloadConfig{
		OutputDir:          "/tmp/tubequeue-test",
		PreferredContainer: "mp4",
		AudioBitrate:       192,
		DefaultKind:        string(domain.KindVideo),
	}
}

// directMetadata answers metadata lookups straight from the extraction
// service, standing in for the coordinator's cached path.
type directMetadata struct {
	extractor domain.Extractor
}

func (d directMetadata) Metadata(ctx context.Context, url string) (*domain.MediaInfo, error) {
	return d.extractor.FetchMetadata(ctx, url)
}

func newTestWorker(extractor *mockExtractor, history domain.HistoryRepository) (*Worker, *QueueManager, *EventBus) {
	bus := NewEventBus()
	qm := NewQueueManager(bus, nil, nil)
	w := NewWorker(qm, extractor, directMetadata{extractor}, NewFormatResolver("mp4"), history, nil, bus, testDownloadConfig(), nil)
	return w, qm, bus
}

func TestWorker_ProcessesItemsInSubmissionOrder(t *testing.T) {
	extractor := newMockExtractor()
	w, qm, _ := newTestWorker(extractor, nil)

	qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")
	qm.Enqueue("https://youtu.be/b", domain.KindVideo, "22")
	qm.Enqueue("https://youtu.be/c", domain.KindVideo, "22")

	assert.NoError(t, w.Start())
	w.Wait()

	assert.Equal(t, []string{
		"https://youtu.be/a",
		"https://youtu.be/b",
		"https://youtu.be/c",
	}, extractor.downloadedURLs())

	for _, item := range qm.Snapshot() {
		assert.Equal(t, domain.StatusCompleted, item.Status)
		assert.Equal(t, float64(100), item.Progress)
	}
}

func TestWorker_FailureDoesNotHaltQueue(t *testing.T) {
	extractor := newMockExtractor()
	w, qm, _ := newTestWorker(extractor, nil)

	id1 := qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")
	id2 := qm.Enqueue("https://youtu.be/b", domain.KindVideo, "22")

	extractor.downloadErrByURL = map[string]error{
		"https://youtu.be/a": errors.New("network unreachable"),
	}

	assert.NoError(t, w.Start())
	w.Wait()

	item1, _ := qm.Get(id1)
	assert.Equal(t, domain.StatusError, item1.Status)
	assert.Contains(t, item1.ErrorMessage, "network unreachable")

	item2, _ := qm.Get(id2)
	assert.Equal(t, domain.StatusCompleted, item2.Status)
}

func TestWorker_StopLetsActiveItemFinish(t *testing.T) {
	extractor := newMockExtractor()
	extractor.downloadDelay = 60 * time.Millisecond
	w, qm, _ := newTestWorker(extractor, nil)

	id1 := qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")
	id2 := qm.Enqueue("https://youtu.be/b", domain.KindVideo, "22")

	assert.NoError(t, w.Start())
	time.Sleep(20 * time.Millisecond) // first download is now in flight
	w.Stop()
	w.Wait()

	item1, _ := qm.Get(id1)
	assert.Equal(t, domain.StatusCompleted, item1.Status)

	// the next item must never have left its pending state
	item2, _ := qm.Get(id2)
	assert.Equal(t, domain.StatusQueued, item2.Status)
	assert.Equal(t, []string{"https://youtu.be/a"}, extractor.downloadedURLs())
}

func TestWorker_EmitsDoneOnExhaustion(t *testing.T) {
	extractor := newMockExtractor()
	w, qm, bus := newTestWorker(extractor, nil)

	qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")
	bus.Drain()

	assert.NoError(t, w.Start())
	w.Wait()

	var done int
	for _, ev := range bus.Drain() {
		if ev.Type == domain.EventDone {
			done++
		}
	}
	assert.Equal(t, 1, done)
	assert.False(t, w.IsRunning())
}

func TestWorker_AtMostOneDownloading(t *testing.T) {
	extractor := newMockExtractor()
	extractor.downloadDelay = 20 * time.Millisecond
	w, qm, _ := newTestWorker(extractor, nil)

	for i := 0; i < 4; i++ {
		qm.Enqueue("https://youtu.be/x", domain.KindVideo, "22")
	}

	assert.NoError(t, w.Start())

	stop := make(chan struct{})
	var maxActive int
	go func() {
		defer close(stop)
		for w.IsRunning() {
			active := 0
			for _, item := range qm.Snapshot() {
				if item.Status == domain.StatusDownloading {
					active++
				}
			}
			if active > maxActive {
				maxActive = active
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	w.Wait()
	<-stop
	assert.LessOrEqual(t, maxActive, 1)
}

func TestWorker_ResolvesDefaultFormatWhenNoQualityChosen(t *testing.T) {
	extractor := newMockExtractor()
	extractor.metadataByURL["https://youtu.be/a"] = &domain.MediaInfo{
		Title: "A Video",
		Formats: []domain.FormatDescriptor{
			{ID: "137", Height: 1080, HasVideo: true, Ext: "mp4", Transport: domain.TransportProgressive, URL: "https://cdn.example.com/137"},
		},
	}
	w, qm, _ := newTestWorker(extractor, nil)

	id := qm.Enqueue("https://youtu.be/a", domain.KindVideo, "")

	assert.NoError(t, w.Start())
	w.Wait()

	item, _ := qm.Get(id)
	assert.Equal(t, domain.StatusCompleted, item.Status)
}

func TestWorker_FormatLookupReusesEnqueueTimeMetadata(t *testing.T) {
	extractor := newMockExtractor()
	extractor.metadataByURL["https://youtu.be/a"] = &domain.MediaInfo{
		Title: "A Video",
		Formats: []domain.FormatDescriptor{
			{ID: "137", Height: 1080, HasVideo: true, Ext: "mp4", Transport: domain.TransportProgressive, URL: "https://cdn.example.com/137"},
		},
	}

	bus := NewEventBus()
	fc := NewFetchCoordinator(extractor, bus, 2, testExtractorConfig(), nil)
	fc.Start()
	t.Cleanup(fc.Stop)

	qm := NewQueueManager(bus, fc, nil)
	w := NewWorker(qm, extractor, fc, NewFormatResolver("mp4"), nil, nil, bus, testDownloadConfig(), nil)

	id := qm.Enqueue("https://youtu.be/a", domain.KindVideo, "")

	// the enqueue-time fetch populates the session cache
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&extractor.metadataCalls) == 1
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, w.Start())
	w.Wait()

	item, _ := qm.Get(id)
	assert.Equal(t, domain.StatusCompleted, item.Status)

	// format resolution hit the cache rather than probing again
	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.metadataCalls))
}

func TestWorker_NoPlayableFormatsMarksError(t *testing.T) {
	extractor := newMockExtractor()
	extractor.metadataByURL["https://youtu.be/a"] = &domain.MediaInfo{
		Title:   "A Video",
		Formats: []domain.FormatDescriptor{{ID: "thumb", URL: "https://i.ytimg.com/vi/a/hq.jpg"}},
	}
	w, qm, _ := newTestWorker(extractor, nil)

	id := qm.Enqueue("https://youtu.be/a", domain.KindVideo, "")

	assert.NoError(t, w.Start())
	w.Wait()

	item, _ := qm.Get(id)
	assert.Equal(t, domain.StatusError, item.Status)
	assert.Contains(t, item.ErrorMessage, "no playable formats")
	assert.Empty(t, extractor.downloadedURLs())
}

func TestWorker_MissingToolBlocksStart(t *testing.T) {
	extractor := newMockExtractor()
	extractor.toolsErr = &domain.ToolMissingError{Tool: "ffmpeg"}
	w, qm, _ := newTestWorker(extractor, nil)

	qm.Enqueue("https://youtu.be/a", domain.KindAudio, "")

	err := w.Start()
	assert.Error(t, err)
	var missing *domain.ToolMissingError
	assert.ErrorAs(t, err, &missing)
	assert.False(t, w.IsRunning())
}

func TestWorker_RecordsHistoryOnTerminalStates(t *testing.T) {
	extractor := newMockExtractor()
	history := &memoryHistory{}
	w, qm, _ := newTestWorker(extractor, history)

	qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")

	assert.NoError(t, w.Start())
	w.Wait()

	assert.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, domain.StatusCompleted, entry.Status)
	assert.Equal(t, "/tmp/output.mp4", entry.OutputPath)
}

func TestWorker_StartTwiceFails(t *testing.T) {
	extractor := newMockExtractor()
	extractor.downloadDelay = 50 * time.Millisecond
	w, qm, _ := newTestWorker(extractor, nil)

	qm.Enqueue("https://youtu.be/a", domain.KindVideo, "22")

	assert.NoError(t, w.Start())
	assert.Error(t, w.Start())
	w.Wait()
}
