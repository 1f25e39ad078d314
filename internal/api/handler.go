package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stock_sync/internal/models"
	"stock_sync/internal/sync"
)

// Handler API 处理器，提供手动触发同步和查询运行记录的接口
type Handler struct {
	syncer *sync.Syncer
	engine *sync.TickEngine
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(syncer *sync.Syncer, engine *sync.TickEngine, db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{
		syncer: syncer,
		engine: engine,
		db:     db,
		logger: logger,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/sync/stocks", h.TriggerStocks)
		api.POST("/sync/companies", h.TriggerCompanies)
		api.POST("/sync/calendar", h.TriggerCalendar)
		api.POST("/sync/daily", h.TriggerDaily)
		api.POST("/sync/realtime", h.TriggerRealtime)
		api.GET("/runs", h.ListRuns)
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// trigger 异步触发一个同步任务
func (h *Handler) trigger(c *gin.Context, jobName string, run func(context.Context) error) {
	go func() {
		if err := run(context.Background()); err != nil {
			h.logger.Error("手动触发的任务执行失败",
				zap.String("job", jobName),
				zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "任务已触发",
		"data":    gin.H{"job": jobName},
	})
}

// TriggerStocks 手动触发股票目录同步
func (h *Handler) TriggerStocks(c *gin.Context) {
	h.trigger(c, sync.JobStock, h.syncer.SyncStocks)
}

// TriggerCompanies 手动触发公司信息同步
func (h *Handler) TriggerCompanies(c *gin.Context) {
	h.trigger(c, sync.JobCompany, h.syncer.SyncCompanies)
}

// TriggerCalendar 手动触发交易日历同步
func (h *Handler) TriggerCalendar(c *gin.Context) {
	h.trigger(c, sync.JobCalendar, h.syncer.SyncCalendar)
}

// TriggerDaily 手动触发日线数据同步
func (h *Handler) TriggerDaily(c *gin.Context) {
	h.trigger(c, sync.JobDaily, h.syncer.SyncDaily)
}

// TriggerRealtime 手动触发实时行情采集（通常由调度器在开盘前启动）
func (h *Handler) TriggerRealtime(c *gin.Context) {
	h.trigger(c, "realtime", h.engine.Run)
}

// ListRuns 查询最近的任务运行记录
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 20
	}

	query := h.db.Order("start_time DESC").Limit(limit)
	if jobName := c.Query("job"); jobName != "" {
		query = query.Where("job_name = ?", jobName)
	}

	var runs []models.SyncRun
	if err := query.Find(&runs).Error; err != nil {
		h.logger.Error("查询运行记录失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询运行记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    runs,
	})
}
