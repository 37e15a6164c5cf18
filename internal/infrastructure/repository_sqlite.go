package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/tubequeue/internal/domain"
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository opens (creating if needed) the history
// database and migrates its schema.
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Record persists a terminal download outcome
func (r *SQLiteHistoryRepository) Record(entry *domain.HistoryEntry) error {
	return r.db.Create(entry).Error
}

// FindRecent returns the newest entries, most recent first
func (r *SQLiteHistoryRepository) FindRecent(limit int) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry
	q := r.db.Order("finished_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// FindByStatus returns entries with the given terminal status
func (r *SQLiteHistoryRepository) FindByStatus(status domain.ItemStatus, limit int) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry
	q := r.db.Where("status = ?", status).Order("finished_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// Stats aggregates the history table
func (r *SQLiteHistoryRepository) Stats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{
		ByStatus: make(map[string]int64),
		ByKind:   make(map[string]int64),
	}

	if err := r.db.Model(&domain.HistoryEntry{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&domain.HistoryEntry{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	var kindCounts []struct {
		Kind  string
		Count int64
	}
	if err := r.db.Model(&domain.HistoryEntry{}).
		Select("kind, count(*) as count").
		Group("kind").
		Scan(&kindCounts).Error; err != nil {
		return nil, err
	}
	for _, kc := range kindCounts {
		stats.ByKind[kc.Kind] = kc.Count
	}

	var bounds struct {
		First time.Time
		Last  time.Time
	}
	if err := r.db.Model(&domain.HistoryEntry{}).
		Select("min(finished_at) as first, max(finished_at) as last").
		Scan(&bounds).Error; err != nil {
		return nil, err
	}
	stats.FirstSeen = bounds.First
	stats.LastSeen = bounds.Last

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
