package domain

// SearchResultEntry is one ranked hit from the extraction service
type SearchResultEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Uploader     string `json:"uploader,omitempty"`
	DurationSec  int64  `json:"duration_sec,omitempty"`
	ViewCount    int64  `json:"view_count,omitempty"`
	UploadDate   string `json:"upload_date,omitempty"` // YYYYMMDD as reported
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	URL          string `json:"url"` // canonical locator
}
