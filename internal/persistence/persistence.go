package persistence

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pagecraft/internal/config"
	"pagecraft/internal/database"
	"pagecraft/internal/snapshot"
	"pagecraft/internal/storage"
)

// ErrBackendUnavailable 表示所选后端缺少对应的连接。
var ErrBackendUnavailable = errors.New("persistence backend unavailable")

// Deps 汇总各后端可用的连接，缺失的保持为 nil。
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Objects *storage.Client
}

// Open 根据配置返回页面快照存储。
func Open(cfg config.PersistenceConfig, deps Deps) (snapshot.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("%w: %s needs a database", ErrBackendUnavailable, cfg.Backend)
		}
		return database.NewSnapshotStore(deps.DB), nil
	case config.BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("%w: %s needs a redis client", ErrBackendUnavailable, cfg.Backend)
		}
		return snapshot.NewRedisStore(deps.Redis, cfg.KeyPrefix), nil
	case config.BackendMinIO:
		if deps.Objects == nil {
			return nil, fmt.Errorf("%w: %s needs a storage client", ErrBackendUnavailable, cfg.Backend)
		}
		return storage.NewSnapshotObjects(deps.Objects), nil
	case config.BackendMemory:
		return snapshot.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence backend %q", cfg.Backend)
	}
}
