package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAssetNotFound 表示素材记录不存在。
var ErrAssetNotFound = errors.New("asset not found")

// AssetStore persists page asset metadata.
type AssetStore struct {
	db *gorm.DB
}

func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

func (s *AssetStore) Create(ctx context.Context, asset Asset) error {
	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (s *AssetStore) CountByPage(ctx context.Context, page string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Asset{}).Where("page_key = ?", page).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

func (s *AssetStore) FindByObjectKey(ctx context.Context, objectKey string) (Asset, error) {
	var asset Asset
	err := s.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Asset{}, ErrAssetNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("find asset: %w", err)
	}
	return asset, nil
}

// ListByPage returns the newest assets of page first.
func (s *AssetStore) ListByPage(ctx context.Context, page string, limit int) ([]Asset, error) {
	if limit <= 0 || limit > 200 {
		limit = 60
	}
	var assets []Asset
	err := s.db.WithContext(ctx).
		Where("page_key = ?", page).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// DeleteByPage removes the asset rows of page and returns their object keys.
func (s *AssetStore) DeleteByPage(ctx context.Context, page string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Asset{}).Where("page_key = ?", page).Pluck("object_key", &keys).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("page_key = ?", page).Delete(&Asset{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete assets: %w", err)
	}
	return keys, nil
}
