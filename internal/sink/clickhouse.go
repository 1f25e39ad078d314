package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"stock_sync/internal/config"
	"stock_sync/internal/models"
)

// ClickHouseSink 实时行情写入端，tick 数据只追加不更新
type ClickHouseSink struct {
	conn   driver.Conn
	table  string
	logger *zap.Logger
}

// NewClickHouseSink 建立 ClickHouse 连接并验证可用性
func NewClickHouseSink(cfg *config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接 ClickHouse 失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ClickHouse 连接测试失败: %w", err)
	}

	logger.Info("ClickHouse 连接成功",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &ClickHouseSink{
		conn:   conn,
		table:  cfg.Table,
		logger: logger,
	}, nil
}

// WriteTicks 批量追加一组行情快照
func (s *ClickHouseSink) WriteTicks(ctx context.Context, ticks []models.TickSnapshot) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("创建写入批次失败: %w", err)
	}

	for _, tick := range ticks {
		err := batch.Append(
			tick.StockCode,
			tick.Name,
			tick.Trade,
			tick.Price,
			tick.Open,
			tick.High,
			tick.Low,
			tick.PreClose,
			tick.Bid,
			tick.Ask,
			tick.Volume,
			tick.Amount,
			tick.Bids[0].Volume, tick.Bids[0].Price,
			tick.Bids[1].Volume, tick.Bids[1].Price,
			tick.Bids[2].Volume, tick.Bids[2].Price,
			tick.Bids[3].Volume, tick.Bids[3].Price,
			tick.Bids[4].Volume, tick.Bids[4].Price,
			tick.Asks[0].Volume, tick.Asks[0].Price,
			tick.Asks[1].Volume, tick.Asks[1].Price,
			tick.Asks[2].Volume, tick.Asks[2].Price,
			tick.Asks[3].Volume, tick.Asks[3].Price,
			tick.Asks[4].Volume, tick.Asks[4].Price,
			tick.Date,
			tick.Time,
			tick.Source,
			tick.Raw,
		)
		if err != nil {
			return fmt.Errorf("追加行情记录失败: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("提交行情批次失败: %w", err)
	}

	s.logger.Debug("行情批次写入完成", zap.Int("ticks", len(ticks)))
	return nil
}

// Close 关闭连接
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
