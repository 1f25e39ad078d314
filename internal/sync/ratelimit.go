package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter 固定时间窗口限流器
// 窗口以第一次调用时刻为起点：前 limit 次调用直接放行，
// 超出后等待到窗口结束（60 秒 - 已经过时间）再开启新窗口
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
	logger      *zap.Logger
}

// NewRateLimiter 创建限流器，limit 为每窗口允许的调用次数
func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Wait 获取一个调用配额，必要时阻塞到当前窗口结束
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// 首次调用或窗口已自然过期，开启新窗口
	if r.count == 0 || now.Sub(r.windowStart) >= r.window {
		r.windowStart = now
		r.count = 1
		return nil
	}

	if r.count < r.limit {
		r.count++
		return nil
	}

	// 配额用尽，等到窗口结束
	wait := r.window - now.Sub(r.windowStart)
	r.logger.Info("达到请求频率上限，等待窗口结束",
		zap.Int("limit", r.limit),
		zap.Duration("wait", wait))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	r.windowStart = time.Now()
	r.count = 1
	return nil
}
