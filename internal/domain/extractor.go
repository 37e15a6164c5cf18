package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPlayableFormat is the sentinel returned when format resolution
// leaves zero usable descriptors. Callers present it, they never panic
// on it.
var ErrNoPlayableFormat = errors.New("no playable formats")

// ToolMissingError reports a required external tool that is absent.
// Detected proactively before any work starts, surfaced once.
type ToolMissingError struct {
	Tool string
	Hint string
}

func (e *ToolMissingError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("required tool %q not found: %s", e.Tool, e.Hint)
	}
	return fmt.Sprintf("required tool %q not found", e.Tool)
}

// ProgressFunc reports download progress as (bytes so far, total bytes
// or estimate). Total may be 0 when the service gives no estimate.
type ProgressFunc func(downloaded, total int64)

// DownloadRequest describes one download/transcode invocation
type DownloadRequest struct {
	URL          string
	Kind         TargetKind
	FormatExpr   string // resolved format expression; empty lets the service pick
	AudioBitrate string // kbps token for audio extraction
	Container    string // merge container for video output
	OutputDir    string
}

// Extractor is the client contract for the external extraction service.
// Implementations must be safe for concurrent use: the fetch pool and
// the worker call into it from different goroutines.
type Extractor interface {
	// FetchMetadata resolves a locator to metadata and its format list
	FetchMetadata(ctx context.Context, url string) (*MediaInfo, error)

	// Search returns up to limit ranked results for a free-text query
	Search(ctx context.Context, query string, limit int) ([]SearchResultEntry, error)

	// Download performs the download/transcode, invoking progress as
	// data arrives, and returns the final output path.
	Download(ctx context.Context, req DownloadRequest, progress ProgressFunc) (string, error)

	// CheckTools verifies the external tooling is present before work
	// starts. Returns a *ToolMissingError when something is absent.
	CheckTools() error
}
