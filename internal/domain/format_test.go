package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDescriptor_Label(t *testing.T) {
	f := FormatDescriptor{ID: "22", Height: 720, HasAudio: true, HasVideo: true, Ext: "mp4"}
	assert.Equal(t, "720p", f.Label())

	f = FormatDescriptor{ID: "137", Height: 1080, HasVideo: true}
	assert.Equal(t, "1080p (video-only)", f.Label())

	f = FormatDescriptor{ID: "140", HasAudio: true, Note: "medium audio"}
	assert.Equal(t, "medium audio", f.Label())

	f = FormatDescriptor{ID: "251", HasAudio: true, Ext: "webm"}
	assert.Equal(t, "webm", f.Label())

	f = FormatDescriptor{ID: "18"}
	assert.Equal(t, "18", f.Label())
}

func TestFormatDescriptor_SizeBytes(t *testing.T) {
	f := FormatDescriptor{Filesize: 1024, FilesizeApprox: 2048}
	assert.Equal(t, int64(1024), f.SizeBytes())

	f = FormatDescriptor{FilesizeApprox: 2048}
	assert.Equal(t, int64(2048), f.SizeBytes())

	f = FormatDescriptor{}
	assert.Equal(t, int64(0), f.SizeBytes())
}
