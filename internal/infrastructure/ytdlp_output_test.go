package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProgressLine(t *testing.T) {
	update, ok := parseProgressLine("[download]  45.2% of 10.55MiB at 1.21MiB/s ETA 00:05")
	assert.True(t, ok)
	assert.Equal(t, 45.2, update.Percent)
	mib := float64(1 << 20)
	assert.Equal(t, int64(10.55*mib), update.TotalBytes)

	update, ok = parseProgressLine("[download] 100% of 10.55MiB in 00:09")
	assert.True(t, ok)
	assert.Equal(t, float64(100), update.Percent)

	// estimated totals carry a tilde
	update, ok = parseProgressLine("[download]   3.1% of ~ 250.00MiB at 5.00MiB/s ETA 00:49")
	assert.True(t, ok)
	assert.Equal(t, 3.1, update.Percent)
	assert.Equal(t, int64(250*(1<<20)), update.TotalBytes)

	_, ok = parseProgressLine("[youtube] abc123: Downloading webpage")
	assert.False(t, ok)

	_, ok = parseProgressLine("")
	assert.False(t, ok)
}

func TestParseDestinationLine(t *testing.T) {
	path, final, ok := parseDestinationLine("[download] Destination: /media/Some Video.f137.mp4")
	assert.True(t, ok)
	assert.False(t, final)
	assert.Equal(t, "/media/Some Video.f137.mp4", path)

	path, final, ok = parseDestinationLine(`[Merger] Merging formats into "/media/Some Video.mp4"`)
	assert.True(t, ok)
	assert.True(t, final)
	assert.Equal(t, "/media/Some Video.mp4", path)

	path, final, ok = parseDestinationLine("[ExtractAudio] Destination: /media/Some Song.mp3")
	assert.True(t, ok)
	assert.True(t, final)
	assert.Equal(t, "/media/Some Song.mp3", path)

	path, _, ok = parseDestinationLine("[download] /media/Some Video.mp4 has already been downloaded")
	assert.True(t, ok)
	assert.Equal(t, "/media/Some Video.mp4", path)

	_, _, ok = parseDestinationLine("[info] Writing video metadata")
	assert.False(t, ok)
}

func TestDestinationTracker_FinalWinsOverIntermediate(t *testing.T) {
	var dt destinationTracker
	dt.observe("[download] Destination: /media/Video.f137.mp4")
	dt.observe("[download] Destination: /media/Video.f140.m4a")
	dt.observe(`[Merger] Merging formats into "/media/Video.mp4"`)

	assert.Equal(t, "/media/Video.mp4", dt.Path())
}

func TestDestinationTracker_FallsBackToLastDestination(t *testing.T) {
	var dt destinationTracker
	dt.observe("[youtube] abc: Downloading webpage")
	dt.observe("[download] Destination: /media/Video.mp4")

	assert.Equal(t, "/media/Video.mp4", dt.Path())
}

func TestDestinationTracker_EmptyWhenNothingSeen(t *testing.T) {
	var dt destinationTracker
	assert.Empty(t, dt.Path())
}
