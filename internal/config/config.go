package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Tushare    TushareConfig    `mapstructure:"tushare"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Log        LogConfig        `mapstructure:"log"`
}

// BackendConfig 后端持久化 API 配置
type BackendConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout"`
}

// BaseURL 返回后端 API 根地址
func (c *BackendConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/api", c.Host, c.Port)
}

// TushareConfig Tushare API 配置
type TushareConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// ClickHouseConfig ClickHouse 实时 tick 数据库配置
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Table    string `mapstructure:"table"`
}

// DatabaseConfig 本地任务记录数据库配置
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// SyncConfig 批量同步任务配置
type SyncConfig struct {
	MaxRetries       int    `mapstructure:"max_retries"`        // 立即重试次数
	RetryDelay       int    `mapstructure:"retry_delay"`        // 重试等待时间（秒）
	FinalRetryDelay  int    `mapstructure:"final_retry_delay"`  // 最终重试等待时间（秒）
	DailyFinalDelay  int    `mapstructure:"daily_final_delay"`  // 日线任务最终重试等待时间（秒）
	BatchSize        int    `mapstructure:"batch_size"`         // 批量写入每批条数
	StockBatchSize   int    `mapstructure:"stock_batch_size"`   // 股票插入每批条数
	RefLimitPerMin   int    `mapstructure:"ref_limit_per_min"`  // 基础信息源每分钟请求上限
	HistLimitPerMin  int    `mapstructure:"hist_limit_per_min"` // 历史行情源每分钟请求上限
	CompanyPageSize  int    `mapstructure:"company_page_size"`  // 公司信息分页大小
	DailyMaxWorkers  int    `mapstructure:"daily_max_workers"`  // 日线任务并发数
	DetailBatchSize  int    `mapstructure:"detail_batch_size"`  // 详情刷新每批股票数
	DetailBatchPause int    `mapstructure:"detail_batch_pause"` // 详情刷新批间暂停（秒）
	DetailItemDelay  int    `mapstructure:"detail_item_delay"`  // 详情刷新单只间隔（毫秒）
	CalendarEpoch    string `mapstructure:"calendar_epoch"`     // 日历回补起点日期
}

// RealtimeConfig 实时 tick 任务配置
type RealtimeConfig struct {
	Windows   []string `mapstructure:"windows"`    // 采集窗口，格式 "09:15-09:25"
	Interval  int      `mapstructure:"interval"`   // 轮询间隔（秒）
	ShardSize int      `mapstructure:"shard_size"` // 每个分片的股票数
}

// SchedulerConfig 调度配置（cron 表达式，启动时读取一次）
type SchedulerConfig struct {
	StockCron    string `mapstructure:"stock_cron"`
	CompanyCron  string `mapstructure:"company_cron"`
	CalendarCron string `mapstructure:"calendar_cron"`
	DailyCron    string `mapstructure:"daily_cron"`
	RealtimeCron string `mapstructure:"realtime_cron"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig 验证配置并填充默认值
func validateConfig(config *Config) error {
	if config.Backend.Token == "" {
		return fmt.Errorf("请配置有效的后端 API Token")
	}

	if config.Database.Type != "postgres" && config.Database.Type != "mysql" {
		return fmt.Errorf("数据库类型必须是 postgres 或 mysql")
	}

	if config.Backend.Timeout <= 0 {
		config.Backend.Timeout = 30
	}

	if config.Sync.MaxRetries <= 0 {
		config.Sync.MaxRetries = 3
	}
	if config.Sync.RetryDelay <= 0 {
		config.Sync.RetryDelay = 5
	}
	if config.Sync.FinalRetryDelay <= 0 {
		config.Sync.FinalRetryDelay = 60
	}
	if config.Sync.DailyFinalDelay <= 0 {
		config.Sync.DailyFinalDelay = 30
	}
	if config.Sync.BatchSize <= 0 {
		config.Sync.BatchSize = 1000
	}
	if config.Sync.StockBatchSize <= 0 {
		config.Sync.StockBatchSize = 500
	}
	if config.Sync.RefLimitPerMin <= 0 {
		config.Sync.RefLimitPerMin = 45
	}
	if config.Sync.HistLimitPerMin <= 0 {
		config.Sync.HistLimitPerMin = 450
	}
	if config.Sync.CompanyPageSize <= 0 {
		config.Sync.CompanyPageSize = 4500
	}
	if config.Sync.DailyMaxWorkers <= 0 {
		config.Sync.DailyMaxWorkers = 5
	}
	if config.Sync.DetailBatchSize <= 0 {
		config.Sync.DetailBatchSize = 100
	}
	if config.Sync.DetailBatchPause <= 0 {
		config.Sync.DetailBatchPause = 5
	}
	if config.Sync.DetailItemDelay <= 0 {
		config.Sync.DetailItemDelay = 200
	}
	if config.Sync.CalendarEpoch == "" {
		config.Sync.CalendarEpoch = "1990-12-01"
	}

	if config.Realtime.Interval <= 0 {
		config.Realtime.Interval = 3
	}
	if config.Realtime.ShardSize <= 0 {
		config.Realtime.ShardSize = 50
	}
	if len(config.Realtime.Windows) == 0 {
		config.Realtime.Windows = []string{"09:15-09:25", "09:30-11:30", "13:00-15:00"}
	}

	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Shanghai",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	default:
		return ""
	}
}
