package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stock_sync/internal/models"
)

// SyncDaily 同步股票日线数据
// 每只股票对三种复权类型分别查游标、计算窗口并拉取，
// 三类行情合并后对该股票做一次批量写入；股票之间用固定大小的工作池并发
// 任何一只股票重试耗尽都会取消其余工作并中止整个任务
func (s *Syncer) SyncDaily(ctx context.Context) error {
	run := s.recorder.Start(JobDaily)
	s.logger.Info("开始同步日线数据")

	stocks, err := s.backend.AllStocks(ctx)
	if err != nil {
		s.recorder.Abort(run, "query_all_stocks", err)
		return err
	}

	// 北交所不在同步范围内
	targets := make([]models.Stock, 0, len(stocks))
	for _, stock := range stocks {
		if stock.Exchange == exchangeBSE {
			continue
		}
		targets = append(targets, stock)
	}

	s.logger.Info("日线同步目标确定", zap.Int("stocks", len(targets)))
	s.recorder.SetStatus(run, models.RunStatusFetching, len(targets))

	var successCount atomic.Int64
	var failedCount atomic.Int64
	var processedCount atomic.Int64
	today := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DailyMaxWorkers)

	for _, stock := range targets {
		stock := stock
		g.Go(func() error {
			bars, err := s.fetchStockDaily(gctx, stock, today)
			if err != nil {
				return err
			}

			if len(bars) > 0 {
				success, failed, werr := WriteBatches(gctx, s.writer, stock.StockCode, bars, s.backend.BatchSaveDaily)
				successCount.Add(int64(success))
				failedCount.Add(int64(failed))
				if werr != nil {
					return werr
				}
			}

			if processed := processedCount.Add(1); processed%10 == 0 {
				s.logger.Info("日线同步进度",
					zap.Int64("processed", processed),
					zap.Int("total", len(targets)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		unit := "daily_sync"
		var fe *FatalError
		if errors.As(err, &fe) {
			unit = fe.Unit
		}
		s.recorder.Abort(run, unit, err)
		return err
	}

	s.recorder.Complete(run, int(successCount.Load()), int(failedCount.Load()))
	s.logger.Info("日线数据同步完成",
		zap.Int64("success", successCount.Load()),
		zap.Int64("failed", failedCount.Load()))
	return nil
}

// fetchStockDaily 拉取单只股票三种复权类型的增量日线并合并
// 每种复权类型独立查游标：窗口起点为游标次日，无游标时从上市日期开始
func (s *Syncer) fetchStockDaily(ctx context.Context, stock models.Stock, today time.Time) ([]models.DailyBar, error) {
	var all []models.DailyBar

	for _, flag := range models.AdjustFlags {
		cursor, err := s.backend.LatestDailyDate(ctx, stock.StockCode, flag)
		if err != nil {
			return nil, &FatalError{
				Unit: fmt.Sprintf("%s[flag=%d]", stock.StockCode, flag),
				Err:  fmt.Errorf("查询日线游标失败: %w", err),
			}
		}

		window, ok := DailyWindow(cursor, stock.ListingDate, s.cfg.CalendarEpoch, today)
		if !ok {
			continue
		}

		unit := fmt.Sprintf("%s[flag=%d,%s~%s]", stock.StockCode, flag, window.Start, window.End)
		bars, err := Fetch(ctx, s.dailyRetry, unit, func(ctx context.Context) ([]models.DailyBar, error) {
			if err := s.histLimit.Wait(ctx); err != nil {
				return nil, err
			}
			bars, err := s.provider.DailyBars(ctx, stock.StockCode, window.Start, window.End, flag)
			if err != nil {
				return nil, err
			}
			if len(bars) == 0 {
				return nil, ErrEmpty
			}
			return bars, nil
		})
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			return nil, err
		}

		all = append(all, bars...)
	}

	// 数据源按日期倒序返回，写入必须从最旧的日期开始：
	// 游标取后端最新日期，乱序写入会在某批失败时把游标推过缺口
	sort.Slice(all, func(i, j int) bool {
		if all[i].TradeDate != all[j].TradeDate {
			return all[i].TradeDate < all[j].TradeDate
		}
		return all[i].AdjustFlag < all[j].AdjustFlag
	})

	return all, nil
}
