package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stock_sync/internal/models"
)

// SyncCompanies 同步公司基本信息
// 数据源按分页返回，逐页拉取直到返回不足一页为止，每页批量 upsert 到后端
func (s *Syncer) SyncCompanies(ctx context.Context) error {
	run := s.recorder.Start(JobCompany)
	s.logger.Info("开始同步公司基本信息")

	pageSize := s.cfg.CompanyPageSize
	offset := 0
	totalSuccess := 0
	totalFailed := 0

	s.recorder.SetStatus(run, models.RunStatusFetching, 0)

	for {
		unit := fmt.Sprintf("stock_company[offset=%d]", offset)
		page, err := Fetch(ctx, s.retry, unit, func(ctx context.Context) ([]models.CompanyProfile, error) {
			if err := s.refLimit.Wait(ctx); err != nil {
				return nil, err
			}
			companies, err := s.provider.CompanyBasic(ctx, offset, pageSize)
			if err != nil {
				return nil, err
			}
			if len(companies) == 0 {
				return nil, ErrEmpty
			}
			return companies, nil
		})
		if errors.Is(err, ErrEmpty) {
			// 空页即翻页结束
			break
		}
		if err != nil {
			s.recorder.Abort(run, unit, err)
			return err
		}

		s.logger.Info("公司信息分页拉取完成",
			zap.Int("offset", offset),
			zap.Int("count", len(page)))

		success, failed, err := WriteBatches(ctx, s.writer, "companies", page, s.backend.BatchUpsertCompanies)
		if err != nil {
			s.recorder.Abort(run, unit, err)
			return err
		}
		totalSuccess += success
		totalFailed += failed

		// 不足一页说明已经到底
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}

	s.recorder.Complete(run, totalSuccess, totalFailed)
	s.logger.Info("公司基本信息同步完成",
		zap.Int("success", totalSuccess),
		zap.Int("failed", totalFailed))
	return nil
}
