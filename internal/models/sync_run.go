package models

import (
	"time"
)

// 任务运行状态
const (
	RunStatusPlanning  = "planning"
	RunStatusFetching  = "fetching"
	RunStatusWriting   = "writing"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// SyncRun 同步任务运行记录
// 仅用于观测，游标永远以后端状态为准，不读取历史记录决定抓取范围
type SyncRun struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RunID        string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"run_id"` // 运行ID
	JobName      string     `gorm:"type:varchar(50);index;not null" json:"job_name"`     // 任务名
	Status       string     `gorm:"type:varchar(20)" json:"status"`                      // planning/fetching/writing/completed/aborted
	PlannedCount int        `gorm:"type:int" json:"planned_count"`                       // 计划处理单元数
	SuccessCount int        `gorm:"type:int" json:"success_count"`                       // 成功数
	FailedCount  int        `gorm:"type:int" json:"failed_count"`                        // 失败数
	FailedUnit   string     `gorm:"type:varchar(100)" json:"failed_unit"`                // 导致中止的工作单元（日期或股票代码）
	ErrorMsg     string     `gorm:"type:text" json:"error_msg"`                          // 错误信息
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (SyncRun) TableName() string {
	return "sync_runs"
}
