package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"stock_sync/internal/models"
)

// 北交所不在同步范围内
const exchangeBSE = "BSE"

// SyncStocks 同步股票目录
// 拉取远端股票清单（剔除北交所），与后端已有股票做差集，只插入缺失的新股票
// 随后对全部股票做一轮详情刷新，逐字段比对并更新有变化的记录
func (s *Syncer) SyncStocks(ctx context.Context) error {
	run := s.recorder.Start(JobStock)
	s.logger.Info("开始同步股票目录")

	s.recorder.SetStatus(run, models.RunStatusFetching, 0)
	remote, err := Fetch(ctx, s.retry, "stock_basic", func(ctx context.Context) ([]models.Stock, error) {
		if err := s.refLimit.Wait(ctx); err != nil {
			return nil, err
		}
		stocks, err := s.provider.StockBasic(ctx)
		if err != nil {
			return nil, err
		}
		if len(stocks) == 0 {
			return nil, ErrEmpty
		}
		return stocks, nil
	})
	if errors.Is(err, ErrEmpty) {
		s.logger.Warn("股票清单返回为空，跳过本次同步")
		s.recorder.Complete(run, 0, 0)
		return nil
	}
	if err != nil {
		s.recorder.Abort(run, "stock_basic", err)
		return err
	}

	// 剔除北交所
	filtered := make([]models.Stock, 0, len(remote))
	for _, stock := range remote {
		if stock.Exchange == exchangeBSE {
			continue
		}
		filtered = append(filtered, stock)
	}

	local, err := s.backend.QueryStocks(ctx, []string{"SSE", "SZSE"})
	if err != nil {
		s.recorder.Abort(run, "query_local_stocks", err)
		return err
	}
	localKeys := make(map[string]bool, len(local))
	for _, stock := range local {
		localKeys[stock.StockCode] = true
	}

	missing := DiffByKey(filtered, localKeys, func(s models.Stock) string { return s.StockCode })
	s.logger.Info("股票目录差集计算完成",
		zap.Int("remote", len(filtered)),
		zap.Int("local", len(local)),
		zap.Int("missing", len(missing)))

	s.recorder.SetStatus(run, models.RunStatusWriting, len(missing))
	success, failed, err := WriteBatches(ctx, s.stockWriter, "stocks", missing, s.backend.BatchInsertStocks)
	if err != nil {
		s.recorder.Abort(run, "insert_stocks", err)
		return err
	}

	// 详情刷新覆盖已有股票，新插入的详情本身就是最新的
	refSuccess, refFailed, err := s.refreshStockDetails(ctx, local)
	if err != nil {
		s.recorder.Abort(run, "refresh_details", err)
		return err
	}

	s.recorder.Complete(run, success+refSuccess, failed+refFailed)
	s.logger.Info("股票目录同步完成",
		zap.Int("inserted", success),
		zap.Int("insert_failed", failed),
		zap.Int("refreshed", refSuccess),
		zap.Int("refresh_failed", refFailed))
	return nil
}
