package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stock_sync/internal/backend"
	"stock_sync/internal/config"
	"stock_sync/internal/models"
	"stock_sync/internal/provider"
)

// 采集窗口状态
const (
	StatusUpcoming = "upcoming" // 尚未进入任何窗口
	StatusActive   = "active"   // 处于采集窗口内
	StatusFinished = "finished" // 当日全部窗口已结束
)

// TickWriter 实时行情写入端
type TickWriter interface {
	WriteTicks(ctx context.Context, ticks []models.TickSnapshot) error
}

// WindowSpan 单个采集窗口，按自零点起的分钟数表示
type WindowSpan struct {
	Start int
	End   int
}

// ParseWindows 解析 "09:15-09:25" 格式的窗口配置
func ParseWindows(specs []string) ([]WindowSpan, error) {
	var windows []WindowSpan
	for _, spec := range specs {
		parts := strings.Split(spec, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("窗口格式错误: %s", spec)
		}
		start, err := parseClock(parts[0])
		if err != nil {
			return nil, fmt.Errorf("窗口格式错误: %s", spec)
		}
		end, err := parseClock(parts[1])
		if err != nil {
			return nil, fmt.Errorf("窗口格式错误: %s", spec)
		}
		if end <= start {
			return nil, fmt.Errorf("窗口结束时间必须晚于开始时间: %s", spec)
		}
		windows = append(windows, WindowSpan{Start: start, End: end})
	}
	return windows, nil
}

func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("时间格式错误: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return hour*60 + minute, nil
}

// WindowStatus 判断当前时刻相对于窗口集合的状态
// 午间休市视为 upcoming（等待下一个窗口）
func WindowStatus(windows []WindowSpan, now time.Time) string {
	minute := now.Hour()*60 + now.Minute()
	lastEnd := 0
	for _, w := range windows {
		if minute >= w.Start && minute < w.End {
			return StatusActive
		}
		if w.End > lastEnd {
			lastEnd = w.End
		}
	}
	if minute >= lastEnd {
		return StatusFinished
	}
	return StatusUpcoming
}

// SplitShards 把股票代码切成固定大小的分片，最后一片可能不满
func SplitShards(codes []string, size int) [][]string {
	var shards [][]string
	for i := 0; i < len(codes); i += size {
		end := i + size
		if end > len(codes) {
			end = len(codes)
		}
		shards = append(shards, codes[i:end])
	}
	return shards
}

// lane 分片采集通道，busy 标记上一轮是否仍在处理
type lane struct {
	index int
	codes []string
	busy  atomic.Bool
}

// TickEngine 盘中实时行情引擎
// 交易日的采集窗口内按固定节奏轮询全部分片：
// 每轮对每个分片并发发起一次采集写入，轮与轮之间严格按间隔推进，
// 不等待慢分片，上一轮未完成的分片在本轮跳过并记录节奏告警
type TickEngine struct {
	provider *provider.TushareClient
	backend  *backend.Client
	sink     TickWriter
	cfg      *config.RealtimeConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewTickEngine 创建实时行情引擎
func NewTickEngine(p *provider.TushareClient, b *backend.Client, sink TickWriter, cfg *config.RealtimeConfig, logger *zap.Logger) *TickEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickEngine{
		provider: p,
		backend:  b,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run 执行一个交易日的实时采集，全部窗口结束后返回
// 非交易日直接返回
func (e *TickEngine) Run(ctx context.Context) error {
	today := e.now().Format(dateLayout)
	isTradingDay, err := e.backend.IsTradingDay(ctx, today)
	if err != nil {
		return fmt.Errorf("检查交易日失败: %w", err)
	}
	if !isTradingDay {
		e.logger.Info("今日非交易日，实时采集不启动", zap.String("date", today))
		return nil
	}

	windows, err := ParseWindows(e.cfg.Windows)
	if err != nil {
		return err
	}

	stocks, err := e.backend.AllStocks(ctx)
	if err != nil {
		return fmt.Errorf("获取股票列表失败: %w", err)
	}
	var codes []string
	for _, stock := range stocks {
		if stock.Exchange == exchangeBSE {
			continue
		}
		codes = append(codes, stock.StockCode)
	}
	if len(codes) == 0 {
		e.logger.Warn("没有可采集的股票，实时采集不启动")
		return nil
	}

	shards := SplitShards(codes, e.cfg.ShardSize)
	lanes := make([]*lane, len(shards))
	for i, shard := range shards {
		lanes[i] = &lane{index: i, codes: shard}
	}

	e.logger.Info("实时采集启动",
		zap.String("date", today),
		zap.Int("stocks", len(codes)),
		zap.Int("shards", len(shards)),
		zap.Int("interval", e.cfg.Interval))

	interval := time.Duration(e.cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := e.now()
		switch WindowStatus(windows, now) {
		case StatusFinished:
			e.logger.Info("当日采集窗口全部结束")
			return nil
		case StatusActive:
			e.fireRound(ctx, lanes)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		default:
			// 窗口外不采集，睡到下一个窗口开始，上限一分钟
			wait := nextWindowWait(windows, now)
			if wait > time.Minute {
				wait = time.Minute
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			// 丢弃睡眠期间积压的节拍，避免进入窗口后连发两轮
			select {
			case <-ticker.C:
			default:
			}
			ticker.Reset(interval)
		}
	}
}

// nextWindowWait 距离下一个窗口开始还需等待的时间
// 没有更晚的窗口时返回 0（调用方随后会判定为 finished）
func nextWindowWait(windows []WindowSpan, now time.Time) time.Duration {
	minute := now.Hour()*60 + now.Minute()
	next := -1
	for _, w := range windows {
		if w.Start > minute && (next == -1 || w.Start < next) {
			next = w.Start
		}
	}
	if next == -1 {
		return 0
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), next/60, next%60, 0, 0, now.Location())
	return target.Sub(now)
}

// fireRound 发起一轮采集，不等待任何分片完成
func (e *TickEngine) fireRound(ctx context.Context, lanes []*lane) {
	for _, ln := range lanes {
		if !ln.busy.CompareAndSwap(false, true) {
			e.logger.Warn("分片处理跟不上轮询节奏，本轮跳过",
				zap.Int("shard", ln.index),
				zap.Int("codes", len(ln.codes)))
			continue
		}
		go e.collectShard(ctx, ln)
	}
}

// collectShard 采集单个分片并写入
func (e *TickEngine) collectShard(ctx context.Context, ln *lane) {
	defer ln.busy.Store(false)

	ticks, err := e.provider.RealtimeQuotes(ctx, ln.codes)
	if err != nil {
		e.logger.Error("分片行情采集失败",
			zap.Int("shard", ln.index),
			zap.Error(err))
		return
	}
	if len(ticks) == 0 {
		return
	}

	if err := e.sink.WriteTicks(ctx, ticks); err != nil {
		e.logger.Error("分片行情写入失败",
			zap.Int("shard", ln.index),
			zap.Int("ticks", len(ticks)),
			zap.Error(err))
	}
}
