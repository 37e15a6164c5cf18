package domain

import (
	"strings"
	"time"
)

// ItemStatus represents the current status of a queue item
type ItemStatus string

const (
	StatusQueued           ItemStatus = "queued"
	StatusMetadataFetching ItemStatus = "metadata_fetching"
	StatusStandby          ItemStatus = "standby"
	StatusDownloading      ItemStatus = "downloading"
	StatusCompleted        ItemStatus = "completed"
	StatusError            ItemStatus = "error"
	StatusCancelled        ItemStatus = "cancelled"
)

// TargetKind selects the output produced for an item
type TargetKind string

const (
	KindAudio TargetKind = "audio" // audio-only output (mp3)
	KindVideo TargetKind = "video" // video container (mp4)
)

// statusRank orders the forward path of the item lifecycle. Terminal
// states sit above every transient state so a terminal item can never
// move again.
var statusRank = map[ItemStatus]int{
	StatusQueued:           0,
	StatusMetadataFetching: 1,
	StatusStandby:          2,
	StatusDownloading:      3,
	StatusCompleted:        4,
	StatusError:            4,
	StatusCancelled:        4,
}

// DownloadItem represents one entry in the download queue. Items are
// referenced everywhere by their ID, never by pointer identity; IDs are
// assigned monotonically at enqueue time and never reused in a session.
type DownloadItem struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Kind         TargetKind `json:"kind"`
	Quality      string     `json:"quality,omitempty"`       // format token, empty = resolver default
	QualityLabel string     `json:"quality_label,omitempty"` // display label for Quality
	Status       ItemStatus `json:"status"`
	Progress     float64    `json:"progress"` // 0-100, monotonic per attempt
	OutputPath   string     `json:"output_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewDownloadItem creates a queued item with the given id
func NewDownloadItem(id int64, url string, kind TargetKind, quality string) *DownloadItem {
	return &DownloadItem{
		ID:        id,
		URL:       url,
		Kind:      kind,
		Quality:   quality,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}

// transition moves the item to a new status, refusing backward moves
// and moves out of a terminal state. Returns whether the move happened.
func (it *DownloadItem) transition(to ItemStatus) bool {
	if it.IsTerminal() {
		return false
	}
	if statusRank[to] < statusRank[it.Status] {
		return false
	}
	it.Status = to
	return true
}

// MarkMetadataFetching marks the item while its title/thumbnail fetch runs
func (it *DownloadItem) MarkMetadataFetching() bool {
	return it.transition(StatusMetadataFetching)
}

// MarkStandby marks the item ready for download after metadata arrived
func (it *DownloadItem) MarkStandby() bool {
	return it.transition(StatusStandby)
}

// MarkDownloading marks the item as the one active download
func (it *DownloadItem) MarkDownloading() bool {
	if !it.transition(StatusDownloading) {
		return false
	}
	it.Progress = 0
	it.ErrorMessage = ""
	return true
}

// SetQuality pins an explicit format selection on the item. Only
// pending items accept it; an active or finished download keeps the
// selection it ran with.
func (it *DownloadItem) SetQuality(token, label string) bool {
	if !it.IsPending() {
		return false
	}
	it.Quality = token
	it.QualityLabel = label
	return true
}

// SetProgress records progress, clamped to [0,100] and never decreasing
// within an attempt.
func (it *DownloadItem) SetProgress(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > it.Progress {
		it.Progress = percent
	}
}

// MarkCompleted marks the item done with its final output path
func (it *DownloadItem) MarkCompleted(outputPath string) bool {
	if !it.transition(StatusCompleted) {
		return false
	}
	it.OutputPath = outputPath
	it.Progress = 100
	return true
}

// MarkFailed marks the item failed with a message
func (it *DownloadItem) MarkFailed(err error) bool {
	if !it.transition(StatusError) {
		return false
	}
	if err != nil {
		it.ErrorMessage = err.Error()
	}
	return true
}

// MarkCancelled diverts the item to the cancelled terminal state
func (it *DownloadItem) MarkCancelled() bool {
	return it.transition(StatusCancelled)
}

// IsTerminal checks if the item reached a final state
func (it *DownloadItem) IsTerminal() bool {
	return it.Status == StatusCompleted || it.Status == StatusError || it.Status == StatusCancelled
}

// IsPending checks if the worker may still pick this item up
func (it *DownloadItem) IsPending() bool {
	switch it.Status {
	case StatusQueued, StatusMetadataFetching, StatusStandby:
		return true
	default:
		return false
	}
}

// Clone returns a copy safe to hand to readers outside the queue lock
func (it *DownloadItem) Clone() *DownloadItem {
	c := *it
	return &c
}

// DisplayTitle returns the resolved title, falling back to the URL
func (it *DownloadItem) DisplayTitle() string {
	if it.Title != "" {
		return it.Title
	}
	return it.URL
}

// InputClass distinguishes direct locators from free-text queries
type InputClass int

const (
	InputLocator InputClass = iota
	InputQuery
)

// ClassifyInput decides whether user input is a direct media locator or
// a free-text search query.
func ClassifyInput(input string) InputClass {
	s := strings.ToLower(strings.TrimSpace(input))
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return InputLocator
	}
	if strings.Contains(s, "youtube.com/") || strings.Contains(s, "youtu.be/") {
		return InputLocator
	}
	return InputQuery
}

// SplitInputs splits pasted text into individual inputs. Commas and
// newlines both separate entries, matching bulk-paste behavior.
func SplitInputs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ValidateKind checks if a target kind is valid
func ValidateKind(kind TargetKind) bool {
	return kind == KindAudio || kind == KindVideo
}
