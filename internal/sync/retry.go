package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrEmpty 数据源返回空结果
// 空结果不重试也不中止任务，调用方记录后跳过当前单元
var ErrEmpty = errors.New("数据源返回空结果")

// FatalError 重试耗尽后的致命错误，任务收到后整体中止
type FatalError struct {
	Unit string // 失败的同步单元（股票代码、日期窗口等）
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("同步单元 %s 重试耗尽: %v", e.Unit, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal 判断错误是否为致命错误
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// RetryPolicy 拉取重试策略
// 先连续重试 MaxRetries 次（每次间隔 RetryDelay），
// 全部失败后等待 FinalRetryDelay 做最后一次尝试，再失败即为致命错误
type RetryPolicy struct {
	MaxRetries      int
	RetryDelay      time.Duration
	FinalRetryDelay time.Duration
	Logger          *zap.Logger
}

// NewRetryPolicy 按同步配置创建重试策略
func NewRetryPolicy(maxRetries int, retryDelay, finalDelay time.Duration, logger *zap.Logger) *RetryPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{
		MaxRetries:      maxRetries,
		RetryDelay:      retryDelay,
		FinalRetryDelay: finalDelay,
		Logger:          logger,
	}
}

// Fetch 带重试地执行一次数据拉取
// unit 描述当前同步单元，仅用于日志和错误信息
// fn 返回 ErrEmpty 时视为空结果，立即返回不重试
func Fetch[T any](ctx context.Context, p *RetryPolicy, unit string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrEmpty) {
			return zero, ErrEmpty
		}

		p.Logger.Warn("拉取失败，准备重试",
			zap.String("unit", unit),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.MaxRetries),
			zap.Error(err))

		if attempt < p.MaxRetries {
			if err := sleepCtx(ctx, p.RetryDelay); err != nil {
				return zero, err
			}
		}
	}

	// 常规重试耗尽，等待更长时间后做最后一次尝试
	p.Logger.Warn("常规重试耗尽，等待后做最后一次尝试",
		zap.String("unit", unit),
		zap.Duration("final_delay", p.FinalRetryDelay))

	if err := sleepCtx(ctx, p.FinalRetryDelay); err != nil {
		return zero, err
	}

	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrEmpty) {
		return zero, ErrEmpty
	}

	p.Logger.Error("最后一次尝试仍然失败，任务将中止",
		zap.String("unit", unit),
		zap.Error(err))
	return zero, &FatalError{Unit: unit, Err: err}
}

// sleepCtx 可取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
