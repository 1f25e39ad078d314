package sync

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stock_sync/internal/models"
)

// RunRecorder 任务运行记录器，把每次任务执行落库到 sync_runs 表
// db 为 nil 时全部为空操作，方便测试
type RunRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRunRecorder 创建运行记录器
func NewRunRecorder(db *gorm.DB, logger *zap.Logger) *RunRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunRecorder{db: db, logger: logger}
}

// Start 记录任务开始，状态为 planning
func (r *RunRecorder) Start(jobName string) *models.SyncRun {
	run := &models.SyncRun{
		RunID:     fmt.Sprintf("%s_%s", jobName, time.Now().Format("20060102150405.000")),
		JobName:   jobName,
		Status:    models.RunStatusPlanning,
		StartTime: time.Now(),
	}
	if r.db != nil {
		if err := r.db.Create(run).Error; err != nil {
			r.logger.Warn("创建任务运行记录失败", zap.Error(err))
		}
	}
	return run
}

// SetStatus 更新任务状态
func (r *RunRecorder) SetStatus(run *models.SyncRun, status string, plannedCount int) {
	run.Status = status
	if plannedCount > 0 {
		run.PlannedCount = plannedCount
	}
	r.save(run)
}

// Complete 记录任务正常结束
func (r *RunRecorder) Complete(run *models.SyncRun, success, failed int) {
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.SuccessCount = success
	run.FailedCount = failed
	run.EndTime = &now
	r.save(run)
}

// Abort 记录任务中止，failedUnit 为导致中止的工作单元
func (r *RunRecorder) Abort(run *models.SyncRun, failedUnit string, err error) {
	now := time.Now()
	run.Status = models.RunStatusAborted
	run.FailedUnit = failedUnit
	if err != nil {
		run.ErrorMsg = err.Error()
	}
	run.EndTime = &now
	r.save(run)
}

func (r *RunRecorder) save(run *models.SyncRun) {
	if r.db == nil {
		return
	}
	if err := r.db.Save(run).Error; err != nil {
		r.logger.Warn("更新任务运行记录失败", zap.Error(err))
	}
}
