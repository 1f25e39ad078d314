package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stock_sync/internal/models"
)

// 日历窗口之间的停顿
const calendarWindowPause = time.Second

// SyncCalendar 同步交易日历
// 以后端最新日历日期为游标：无游标时从回补起点整段补齐，
// 有游标时只拉取游标之后一年内的日期，按日期幂等写入
func (s *Syncer) SyncCalendar(ctx context.Context) error {
	run := s.recorder.Start(JobCalendar)
	s.logger.Info("开始同步交易日历")

	cursor, err := s.backend.LatestCalendarDate(ctx)
	if err != nil {
		s.recorder.Abort(run, "latest_calendar_date", err)
		return err
	}

	windows, err := CalendarWindows(cursor, s.cfg.CalendarEpoch, time.Now())
	if err != nil {
		s.recorder.Abort(run, "plan_windows", err)
		return err
	}
	if len(windows) == 0 {
		s.logger.Info("交易日历已是最新，无需同步", zap.String("cursor", cursor))
		s.recorder.Complete(run, 0, 0)
		return nil
	}

	s.logger.Info("交易日历窗口规划完成",
		zap.String("cursor", cursor),
		zap.Int("windows", len(windows)))
	s.recorder.SetStatus(run, models.RunStatusFetching, len(windows))

	totalSuccess := 0
	totalFailed := 0

	for i, window := range windows {
		unit := fmt.Sprintf("trade_cal[%s~%s]", window.Start, window.End)
		days, err := Fetch(ctx, s.retry, unit, func(ctx context.Context) ([]models.CalendarDay, error) {
			if err := s.refLimit.Wait(ctx); err != nil {
				return nil, err
			}
			days, err := s.provider.TradeDates(ctx, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			if len(days) == 0 {
				return nil, ErrEmpty
			}
			return days, nil
		})
		if errors.Is(err, ErrEmpty) {
			s.logger.Warn("日历窗口返回为空，跳过",
				zap.String("start", window.Start),
				zap.String("end", window.End))
			continue
		}
		if err != nil {
			s.recorder.Abort(run, unit, err)
			return err
		}

		success, failed, err := WriteBatches(ctx, s.writer, "calendar", days, s.backend.BatchSaveCalendar)
		if err != nil {
			s.recorder.Abort(run, unit, err)
			return err
		}
		totalSuccess += success
		totalFailed += failed

		if i+1 < len(windows) {
			if err := sleepCtx(ctx, calendarWindowPause); err != nil {
				return err
			}
		}
	}

	// 回读当年日历核对覆盖情况，只告警不中止
	year := time.Now().Year()
	if days, err := s.backend.CalendarYear(ctx, year); err != nil {
		s.logger.Warn("回读年度日历失败", zap.Int("year", year), zap.Error(err))
	} else if len(days) == 0 {
		s.logger.Warn("同步后当年日历仍为空", zap.Int("year", year))
	} else {
		s.logger.Info("年度日历覆盖核对完成",
			zap.Int("year", year),
			zap.Int("days", len(days)))
	}

	s.recorder.Complete(run, totalSuccess, totalFailed)
	s.logger.Info("交易日历同步完成",
		zap.Int("success", totalSuccess),
		zap.Int("failed", totalFailed))
	return nil
}
