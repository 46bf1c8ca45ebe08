package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PageSnapshot 保存每个页面当前的快照。
// 合法 JSON 写入 Content（jsonb），无法解析的原始字节写入 Raw。
type PageSnapshot struct {
	ID        uint           `gorm:"primarykey"`
	PageKey   string         `gorm:"uniqueIndex;size:128"`
	Content   datatypes.JSON `gorm:"type:jsonb"`
	Raw       []byte
	SizeBytes int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SnapshotArchive 记录一次快照归档到对象存储的结果。
type SnapshotArchive struct {
	gorm.Model
	PageKey       string `gorm:"index;size:128"`
	ObjectKey     string `gorm:"size:512"`
	SizeBytes     int
	CorrelationID string `gorm:"size:64"`
}

// Asset 表示页面上传的图片或视频素材。
type Asset struct {
	gorm.Model
	PageKey      string `gorm:"index;size:128"`
	ObjectKey    string `gorm:"uniqueIndex;size:512"`
	ContentType  string `gorm:"size:128"`
	SizeBytes    int64
	OriginalName string `gorm:"size:255"`
}

// AutoMigrate creates or updates every table used by the services.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PageSnapshot{}, &SnapshotArchive{}, &Asset{})
}
