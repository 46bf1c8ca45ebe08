package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pagecraft/internal/snapshot"
)

// SnapshotStore implements snapshot.Store on the page_snapshots table.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row PageSnapshot
	err := s.db.WithContext(ctx).Where("page_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query page snapshot: %w", err)
	}
	if len(row.Content) > 0 {
		return []byte(row.Content), nil
	}
	return row.Raw, nil
}

func (s *SnapshotStore) Put(ctx context.Context, key string, blob []byte) error {
	row := PageSnapshot{PageKey: key, SizeBytes: len(blob)}
	// jsonb 只接受合法 JSON。
	if json.Valid(blob) {
		row.Content = datatypes.JSON(blob)
	} else {
		row.Raw = blob
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "raw", "size_bytes", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert page snapshot: %w", err)
	}
	return nil
}

// Keys lists every stored page key in order.
func (s *SnapshotStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&PageSnapshot{}).Order("page_key").Pluck("page_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("list page snapshots: %w", err)
	}
	return keys, nil
}

// RecordArchive stores the result of one archive run.
func RecordArchive(ctx context.Context, db *gorm.DB, archive *SnapshotArchive) error {
	if err := db.WithContext(ctx).Create(archive).Error; err != nil {
		return fmt.Errorf("create snapshot archive: %w", err)
	}
	return nil
}

// ListArchives returns the archives of page, newest first.
func ListArchives(ctx context.Context, db *gorm.DB, page string, limit int) ([]SnapshotArchive, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var archives []SnapshotArchive
	err := db.WithContext(ctx).
		Where("page_key = ?", page).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&archives).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshot archives: %w", err)
	}
	return archives, nil
}

// DeleteArchives removes the archive rows of page and returns how many were deleted.
func DeleteArchives(ctx context.Context, db *gorm.DB, page string) (int64, error) {
	result := db.WithContext(ctx).Unscoped().Where("page_key = ?", page).Delete(&SnapshotArchive{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete snapshot archives: %w", result.Error)
	}
	return result.RowsAffected, nil
}
