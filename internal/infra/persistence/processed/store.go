package processed

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
)

// Store 已完成的目标 URL 集合，批量模式重启后据此跳过
type Store interface {
	Contains(ctx context.Context, url string) (bool, error)
	Add(ctx context.Context, url string) error
	Close() error
}

// InitStore 按 batch.processed_store 选择实现
func InitStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Batch.ProcessedStore {
	case "", "file":
		return OpenFile(cfg.Batch.ProcessedFile)
	case "redis":
		return NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ProcessedKey)
	default:
		return nil, fmt.Errorf("未知的 processed_store: %s", cfg.Batch.ProcessedStore)
	}
}
