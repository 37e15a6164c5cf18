package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubequeue/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteHistoryRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "history.db")
	repo, err := NewSQLiteHistoryRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func makeEntry(status domain.ItemStatus, kind domain.TargetKind, finished time.Time) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:         uuid.New().String(),
		URL:        "https://youtu.be/abc123",
		Title:      "Some Video",
		Kind:       kind,
		Status:     status,
		OutputPath: "/media/Some Video.mp4",
		CreatedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestRecordAndFindRecent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now()
	older := makeEntry(domain.StatusCompleted, domain.KindVideo, now.Add(-time.Hour))
	newer := makeEntry(domain.StatusCompleted, domain.KindAudio, now)
	require.NoError(t, repo.Record(older))
	require.NoError(t, repo.Record(newer))

	entries, err := repo.FindRecent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, older.ID, entries[1].ID)
}

func TestFindRecent_RespectsLimit(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(makeEntry(domain.StatusCompleted, domain.KindVideo, time.Now())))
	}

	entries, err := repo.FindRecent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFindByStatus(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Record(makeEntry(domain.StatusCompleted, domain.KindVideo, time.Now())))
	failed := makeEntry(domain.StatusError, domain.KindVideo, time.Now())
	failed.ErrorDetail = "network unreachable"
	require.NoError(t, repo.Record(failed))

	entries, err := repo.FindByStatus(domain.StatusError, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, failed.ID, entries[0].ID)
	assert.Equal(t, "network unreachable", entries[0].ErrorDetail)
}

func TestStats(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now()
	require.NoError(t, repo.Record(makeEntry(domain.StatusCompleted, domain.KindVideo, now.Add(-time.Hour))))
	require.NoError(t, repo.Record(makeEntry(domain.StatusCompleted, domain.KindAudio, now)))
	require.NoError(t, repo.Record(makeEntry(domain.StatusError, domain.KindVideo, now)))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[string(domain.StatusCompleted)])
	assert.Equal(t, int64(1), stats.ByStatus[string(domain.StatusError)])
	assert.Equal(t, int64(2), stats.ByKind[string(domain.KindVideo)])
	assert.Equal(t, int64(1), stats.ByKind[string(domain.KindAudio)])
}

func TestStats_EmptyTable(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Empty(t, stats.ByStatus)
}
