package infrastructure

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubequeue/internal/domain"
)

func TestToMediaInfo(t *testing.T) {
	raw := `{
		"id": "abc123",
		"title": "Some Video",
		"uploader": "SomeChannel",
		"duration": 213.4,
		"thumbnail": "https://i.ytimg.com/vi/abc123/hq.jpg",
		"webpage_url": "https://www.youtube.com/watch?v=abc123",
		"formats": [
			{"format_id": "140", "acodec": "mp4a.40.2", "vcodec": "none", "ext": "m4a", "protocol": "https", "filesize": 3400000},
			{"format_id": "137", "height": 1080, "fps": 30, "acodec": "none", "vcodec": "avc1", "ext": "mp4", "protocol": "https", "filesize_approx": 52000000, "url": "https://cdn.example.com/137"},
			{"format_id": "hls-720", "height": 720, "acodec": "mp4a", "vcodec": "avc1", "ext": "mp4", "protocol": "m3u8_native"},
			{"format_id": "dash-1", "height": 1080, "acodec": "none", "vcodec": "avc1", "ext": "mp4", "protocol": "http_dash_segments"}
		]
	}`

	var info ytdlpInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))

	media := toMediaInfo(&info)
	assert.Equal(t, "abc123", media.ID)
	assert.Equal(t, "Some Video", media.Title)
	assert.Equal(t, "SomeChannel", media.Uploader)
	assert.Equal(t, int64(213), media.DurationSec)
	require.Len(t, media.Formats, 4)

	audio := media.Formats[0]
	assert.True(t, audio.HasAudio)
	assert.False(t, audio.HasVideo)
	assert.Equal(t, domain.TransportProgressive, audio.Transport)
	assert.Equal(t, int64(3400000), audio.SizeBytes())

	video := media.Formats[1]
	assert.False(t, video.HasAudio)
	assert.True(t, video.HasVideo)
	assert.Equal(t, 1080, video.Height)
	assert.Equal(t, int64(52000000), video.SizeBytes())

	assert.Equal(t, domain.TransportHLS, media.Formats[2].Transport)
	assert.Equal(t, domain.TransportDASH, media.Formats[3].Transport)
}

func TestToSearchEntry(t *testing.T) {
	entry := ytdlpInfo{
		ID:         "vid-1",
		Title:      "Found It",
		Channel:    "ChannelName",
		Duration:   95,
		ViewCount:  12345,
		UploadDate: "20250110",
		Thumbnail:  "https://i.ytimg.com/vi/vid-1/hq.jpg",
	}

	result := toSearchEntry(&entry)
	assert.Equal(t, "vid-1", result.ID)
	assert.Equal(t, "ChannelName", result.Uploader)
	assert.Equal(t, int64(95), result.DurationSec)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid-1", result.URL)

	entry.URL = "https://www.youtube.com/watch?v=vid-1&pp=x"
	assert.Equal(t, entry.URL, toSearchEntry(&entry).URL)
}

func TestTransportOf(t *testing.T) {
	assert.Equal(t, domain.TransportProgressive, transportOf("https"))
	assert.Equal(t, domain.TransportProgressive, transportOf("http"))
	assert.Equal(t, domain.TransportHLS, transportOf("m3u8_native"))
	assert.Equal(t, domain.TransportHLS, transportOf("m3u8"))
	assert.Equal(t, domain.TransportDASH, transportOf("http_dash_segments"))
	assert.Equal(t, domain.TransportProgressive, transportOf(""))
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "/media/Song.mp3", replaceExt("/media/Song.webm", ".mp3"))
	assert.Equal(t, "/media/Song.mp3", replaceExt("/media/Song", ".mp3"))
}

func TestCheckTools_MissingBinary(t *testing.T) {
	e := NewYTDLPExtractor(domain.ExtractorConfig{
		YTDLPBinary:  "definitely-not-a-real-binary-xyz",
		FFmpegBinary: "ffmpeg",
	}, t.TempDir(), nil)

	err := e.CheckTools()
	var missing *domain.ToolMissingError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, "definitely-not-a-real-binary-xyz", missing.Tool)
}
