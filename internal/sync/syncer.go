package sync

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stock_sync/internal/backend"
	"stock_sync/internal/config"
	"stock_sync/internal/provider"
)

// 任务名
const (
	JobStock    = "stock_sync"
	JobCompany  = "company_sync"
	JobCalendar = "calendar_sync"
	JobDaily    = "daily_sync"
)

// Syncer 批量同步引擎，持有数据源、后端客户端和各任务共享的限流/重试组件
type Syncer struct {
	provider *provider.TushareClient
	backend  *backend.Client
	recorder *RunRecorder
	cfg      *config.SyncConfig
	logger   *zap.Logger

	refLimit  *RateLimiter // 基础信息接口限流
	histLimit *RateLimiter // 历史行情接口限流

	retry      *RetryPolicy // 基础信息任务重试策略
	dailyRetry *RetryPolicy // 日线任务重试策略（最终等待更短）

	writer      *BatchWriter // 通用批量写入
	stockWriter *BatchWriter // 股票插入批量写入
}

// NewSyncer 创建同步引擎
func NewSyncer(p *provider.TushareClient, b *backend.Client, db *gorm.DB, cfg *config.SyncConfig, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		provider:  p,
		backend:   b,
		recorder:  NewRunRecorder(db, logger),
		cfg:       cfg,
		logger:    logger,
		refLimit:  NewRateLimiter(cfg.RefLimitPerMin, time.Minute, logger),
		histLimit: NewRateLimiter(cfg.HistLimitPerMin, time.Minute, logger),
		retry: NewRetryPolicy(cfg.MaxRetries,
			time.Duration(cfg.RetryDelay)*time.Second,
			time.Duration(cfg.FinalRetryDelay)*time.Second, logger),
		dailyRetry: NewRetryPolicy(cfg.MaxRetries,
			time.Duration(cfg.RetryDelay)*time.Second,
			time.Duration(cfg.DailyFinalDelay)*time.Second, logger),
		writer:      NewBatchWriter(cfg.BatchSize, logger),
		stockWriter: NewBatchWriter(cfg.StockBatchSize, logger),
	}
}
