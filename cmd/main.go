package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_sync/internal/api"
	"stock_sync/internal/backend"
	"stock_sync/internal/config"
	"stock_sync/internal/database"
	"stock_sync/internal/provider"
	"stock_sync/internal/scheduler"
	"stock_sync/internal/sink"
	"stock_sync/internal/sync"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}

	// 初始化日志
	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.Info("配置加载成功")

	// 初始化任务记录数据库
	if err := database.InitDB(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()

	// 创建数据源与后端客户端
	tushareClient := provider.NewTushareClient(&cfg.Tushare)
	backendClient := backend.NewClient(&cfg.Backend)
	logger.Info("数据源与后端客户端初始化成功")

	// 创建实时行情写入端
	tickSink, err := sink.NewClickHouseSink(&cfg.ClickHouse, logger)
	if err != nil {
		logger.Fatal("初始化 ClickHouse 失败", zap.Error(err))
	}
	defer tickSink.Close()

	// 创建同步引擎和实时行情引擎
	syncer := sync.NewSyncer(tushareClient, backendClient, database.GetDB(), &cfg.Sync, logger)
	engine := sync.NewTickEngine(tushareClient, backendClient, tickSink, &cfg.Realtime, logger)

	// 启动定时调度
	sched := scheduler.NewScheduler(syncer, engine, &cfg.Scheduler, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("启动调度器失败", zap.Error(err))
	}
	defer sched.Stop()

	// 设置 Gin
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	handler := api.NewHandler(syncer, engine, database.GetDB(), logger)
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info("服务器启动", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}

// initLogger 初始化日志
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	// 创建日志目录
	if err := os.MkdirAll("./logs", 0755); err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{
		"stdout",
		cfg.File,
	}

	// 设置日志级别
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
