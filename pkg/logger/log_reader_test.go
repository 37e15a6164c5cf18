package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("queue"))
	assert.True(t, ValidCategory("fetch"))
	assert.True(t, ValidCategory("error"))
	assert.False(t, ValidCategory("web-access"))
	assert.False(t, ValidCategory(""))
}

func TestReadLogsMissingFile(t *testing.T) {
	lr := NewLogReader(t.TempDir())

	entries, err := lr.ReadLogs(CategoryQueue, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadLogsParsesAndLimits(t *testing.T) {
	dir := t.TempDir()
	lr := NewLogReader(dir)

	now := time.Now()
	content := `{"timestamp":"2026-08-31T10:00:00Z","level":"info","message":"item enqueued"}
{"timestamp":"2026-08-31T10:00:01Z","level":"info","message":"download started"}
not json at all
`
	path := lr.GetLogPath(CategoryQueue, now)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	entries, err := lr.ReadLogs(CategoryQueue, now, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "item enqueued", entries[0].Message)
	assert.Equal(t, "queue", entries[0].Category)
	assert.Equal(t, "not json at all", entries[2].Message)

	tail, err := lr.ReadLogs(CategoryQueue, now, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "download started", tail[0].Message)
}

func TestSearchLogs(t *testing.T) {
	dir := t.TempDir()
	lr := NewLogReader(dir)

	now := time.Now()
	content := `{"timestamp":"t","level":"info","message":"item enqueued"}
{"timestamp":"t","level":"error","message":"download failed"}
`
	require.NoError(t, os.WriteFile(lr.GetLogPath(CategoryQueue, now), []byte(content), 0644))

	matches, err := lr.SearchLogs(CategoryQueue, now, "failed", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "error", matches[0].Level)
}

func TestGetLogPathUsesDateAndCategory(t *testing.T) {
	lr := NewLogReader("/var/log/app")
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	path := lr.GetLogPath(CategoryFetch, date)
	assert.Equal(t, filepath.Join("/var/log/app", "fetch-20260831.log"), path)
}
