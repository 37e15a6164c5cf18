package domain

import "fmt"

// Transport tags how a format's stream is delivered
type Transport string

const (
	TransportProgressive Transport = "progressive" // single-file http(s), byte-range friendly
	TransportHLS         Transport = "hls"         // m3u8 segmented manifest
	TransportDASH        Transport = "dash"        // fragmented adaptive manifest
)

// FormatDescriptor is one candidate encoding/transport option for a
// media resource. A fetched list is immutable; a re-fetch produces a
// new list.
type FormatDescriptor struct {
	ID             string    `json:"id"`
	Height         int       `json:"height,omitempty"`
	FPS            int       `json:"fps,omitempty"`
	HasAudio       bool      `json:"has_audio"`
	HasVideo       bool      `json:"has_video"`
	Ext            string    `json:"ext,omitempty"`
	Transport      Transport `json:"transport"`
	Filesize       int64     `json:"filesize,omitempty"`
	FilesizeApprox int64     `json:"filesize_approx,omitempty"`
	URL            string    `json:"url,omitempty"`
	Note           string    `json:"note,omitempty"`
}

// Label builds a compact display label: resolution class when known,
// otherwise note/ext/id, with a video-only marker.
func (f FormatDescriptor) Label() string {
	label := ""
	switch {
	case f.Height > 0:
		label = fmt.Sprintf("%dp", f.Height)
	case f.Note != "":
		label = f.Note
	case f.Ext != "":
		label = f.Ext
	default:
		label = f.ID
	}
	if label == "" {
		label = "unknown"
	}
	if f.HasVideo && !f.HasAudio {
		label += " (video-only)"
	}
	return label
}

// SizeBytes returns the exact size when known, else the estimate, else 0
func (f FormatDescriptor) SizeBytes() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// MediaInfo is the metadata result for one resource
type MediaInfo struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Uploader     string             `json:"uploader,omitempty"`
	DurationSec  int64              `json:"duration_sec,omitempty"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	WebpageURL   string             `json:"webpage_url,omitempty"`
	Formats      []FormatDescriptor `json:"formats,omitempty"`
}
