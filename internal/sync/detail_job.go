package sync

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"stock_sync/internal/models"
)

// 数值字段比对容差
const shareEpsilon = 0.01

// refreshStockDetails 详情刷新：逐只股票拉取最新详情，与本地记录比对后按需更新
// 每只之间主动停顿，每处理一批后再停顿一段，给数据源留出余量
func (s *Syncer) refreshStockDetails(ctx context.Context, stocks []models.Stock) (int, int, error) {
	updated := 0
	failed := 0

	for i, stock := range stocks {
		detail, err := Fetch(ctx, s.retry, stock.StockCode, func(ctx context.Context) (*models.StockDetail, error) {
			if err := s.refLimit.Wait(ctx); err != nil {
				return nil, err
			}
			d, err := s.provider.StockDetail(ctx, stock.StockCode)
			if err != nil {
				return nil, err
			}
			if d == nil {
				return nil, ErrEmpty
			}
			return d, nil
		})
		if errors.Is(err, ErrEmpty) {
			s.logger.Debug("股票详情为空，跳过", zap.String("stock_code", stock.StockCode))
			continue
		}
		if err != nil {
			return updated, failed, err
		}

		changes := diffStockDetail(&stock, detail)
		if len(changes) > 0 {
			if err := s.backend.UpdateStock(ctx, stock.StockCode, changes); err != nil {
				failed++
				s.logger.Error("更新股票详情失败",
					zap.String("stock_code", stock.StockCode),
					zap.Error(err))
			} else {
				updated++
				s.logger.Info("股票详情已更新",
					zap.String("stock_code", stock.StockCode),
					zap.Int("fields", len(changes)))
			}
		}

		if err := sleepCtx(ctx, time.Duration(s.cfg.DetailItemDelay)*time.Millisecond); err != nil {
			return updated, failed, err
		}
		if (i+1)%s.cfg.DetailBatchSize == 0 && i+1 < len(stocks) {
			s.logger.Info("详情刷新批次完成，暂停",
				zap.Int("processed", i+1),
				zap.Int("total", len(stocks)))
			if err := sleepCtx(ctx, time.Duration(s.cfg.DetailBatchPause)*time.Second); err != nil {
				return updated, failed, err
			}
		}
	}

	return updated, failed, nil
}

// diffStockDetail 字段级比对：字符串精确比较，数值允许 0.01 以内的误差
// 返回需要更新的字段集合，空集合表示无变化
func diffStockDetail(local *models.Stock, remote *models.StockDetail) map[string]interface{} {
	changes := make(map[string]interface{})

	if remote.StockName != "" && remote.StockName != local.StockName {
		changes["stockName"] = remote.StockName
	}
	if remote.Status != "" && remote.Status != local.Status {
		changes["status"] = remote.Status
	}
	if strPtrChanged(local.Industry, remote.Industry) {
		changes["industry"] = *remote.Industry
	}
	if strPtrChanged(local.Area, remote.Area) {
		changes["area"] = *remote.Area
	}
	if strPtrChanged(local.Market, remote.Market) {
		changes["market"] = *remote.Market
	}
	if floatPtrChanged(local.TotalShare, remote.TotalShare) {
		changes["totalShare"] = *remote.TotalShare
	}
	if floatPtrChanged(local.FloatShare, remote.FloatShare) {
		changes["floatShare"] = *remote.FloatShare
	}

	return changes
}

// strPtrChanged 远端有值且与本地不同才算变化，远端缺失不触发更新
func strPtrChanged(local, remote *string) bool {
	if remote == nil {
		return false
	}
	return local == nil || *local != *remote
}

// floatPtrChanged 数值比较带容差，避免精度抖动造成无意义更新
func floatPtrChanged(local, remote *float64) bool {
	if remote == nil {
		return false
	}
	if local == nil {
		return true
	}
	return math.Abs(*local-*remote) > shareEpsilon
}
