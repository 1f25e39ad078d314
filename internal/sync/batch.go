package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 批间暂停，避免对后端造成写入压力
const chunkPause = 500 * time.Millisecond

// BatchWriter 分批写入器
// 按固定批大小切分记录，逐批独立提交：单批失败只计入失败数，
// 不影响后续批次，最终返回成功/失败条数汇总
type BatchWriter struct {
	batchSize int
	logger    *zap.Logger
}

// NewBatchWriter 创建分批写入器
func NewBatchWriter(batchSize int, logger *zap.Logger) *BatchWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchWriter{
		batchSize: batchSize,
		logger:    logger,
	}
}

// WriteBatches 分批写入 items，返回 (成功条数, 失败条数)
// write 对每批独立调用，批与批之间停顿 0.5 秒，最后一批后不停顿
func WriteBatches[T any](ctx context.Context, w *BatchWriter, name string, items []T, write func(context.Context, []T) error) (int, int, error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	success := 0
	failed := 0
	total := (len(items) + w.batchSize - 1) / w.batchSize

	for i := 0; i < len(items); i += w.batchSize {
		end := i + w.batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]
		batchNo := i/w.batchSize + 1

		if err := write(ctx, chunk); err != nil {
			failed += len(chunk)
			w.logger.Error("批次写入失败",
				zap.String("name", name),
				zap.Int("batch", batchNo),
				zap.Int("total_batches", total),
				zap.Int("size", len(chunk)),
				zap.Error(err))
		} else {
			success += len(chunk)
			w.logger.Info("批次写入完成",
				zap.String("name", name),
				zap.Int("batch", batchNo),
				zap.Int("total_batches", total),
				zap.Int("size", len(chunk)))
		}

		if end < len(items) {
			if err := sleepCtx(ctx, chunkPause); err != nil {
				return success, failed, err
			}
		}
	}

	return success, failed, nil
}
