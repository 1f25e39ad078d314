package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"stock_sync/internal/config"
	"stock_sync/internal/sync"
)

// Scheduler 定时任务调度器
// 启动时按配置注册各任务的 cron 表达式，配置只在启动时读取一次
type Scheduler struct {
	cron   *gocron.Scheduler
	syncer *sync.Syncer
	engine *sync.TickEngine
	cfg    *config.SchedulerConfig
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler 创建调度器，任务统一按上海时区触发
func NewScheduler(syncer *sync.Syncer, engine *sync.TickEngine, cfg *config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.Local
	}

	s := gocron.NewScheduler(loc)
	// 同一任务不允许并发重入，上一轮未结束时跳过本轮
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   s,
		syncer: syncer,
		engine: engine,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 注册全部定时任务并异步启动调度
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		cron string
		run  func(context.Context) error
	}{
		{"股票目录同步", s.cfg.StockCron, s.syncer.SyncStocks},
		{"公司信息同步", s.cfg.CompanyCron, s.syncer.SyncCompanies},
		{"交易日历同步", s.cfg.CalendarCron, s.syncer.SyncCalendar},
		{"日线数据同步", s.cfg.DailyCron, s.syncer.SyncDaily},
		{"实时行情采集", s.cfg.RealtimeCron, s.engine.Run},
	}

	for _, job := range jobs {
		if job.cron == "" {
			s.logger.Info("任务未配置 cron，跳过注册", zap.String("job", job.name))
			continue
		}

		name := job.name
		run := job.run
		_, err := s.cron.Cron(job.cron).Do(func() {
			s.logger.Info("定时任务触发", zap.String("job", name))
			if err := run(s.ctx); err != nil {
				s.logger.Error("定时任务执行失败",
					zap.String("job", name),
					zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		s.logger.Info("定时任务已注册",
			zap.String("job", job.name),
			zap.String("cron", job.cron))
	}

	s.cron.StartAsync()
	return nil
}

// Stop 停止调度并取消正在执行的任务
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.logger.Info("调度器已停止")
}
