package domain

import "time"

// HistoryEntry is one finished (or failed) download, persisted for the
// history view. Separate from the live queue item: queue state is
// in-memory only, history survives restarts.
type HistoryEntry struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	URL         string     `gorm:"index" json:"url"`
	Title       string     `json:"title"`
	Kind        TargetKind `json:"kind"`
	Quality     string     `json:"quality"`
	Status      ItemStatus `gorm:"index" json:"status"`
	OutputPath  string     `json:"output_path"`
	ErrorDetail string     `gorm:"column:error_detail" json:"error_detail,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

func (HistoryEntry) TableName() string {
	return "download_history"
}

// HistoryStats aggregates the history table for the stats view
type HistoryStats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByKind    map[string]int64 `json:"by_kind"`
	FirstSeen time.Time        `json:"first_seen"`
	LastSeen  time.Time        `json:"last_seen"`
}

// HistoryRepository persists terminal download outcomes
type HistoryRepository interface {
	Record(entry *HistoryEntry) error
	FindRecent(limit int) ([]*HistoryEntry, error)
	FindByStatus(status ItemStatus, limit int) ([]*HistoryEntry, error)
	Stats() (*HistoryStats, error)
	Close() error
}
