package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Trade     TradeConfig     `mapstructure:"trade"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Trigger   TriggerConfig   `mapstructure:"trigger"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Simulation  bool   `mapstructure:"simulation"`
}

// MarketConfig 描述行情数据源连接信息。
type MarketConfig struct {
	Name       string      `mapstructure:"name"`
	Symbol     string      `mapstructure:"symbol"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// TradeConfig 描述执行端交易所配置。
type TradeConfig struct {
	Name       string `mapstructure:"name"`
	Symbol     string `mapstructure:"symbol"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UseSandbox bool   `mapstructure:"use_sandbox"`
}

// RetryConfig 统一控制行情接口的重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OracleConfig 描述顾问模型调用参数。
type OracleConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxCallsPerHour int           `mapstructure:"max_calls_per_hour"`
}

// TriggerConfig 控制规则信号触发门槛。
type TriggerConfig struct {
	MinScore    float64 `mapstructure:"min_score"`
	CandleLimit int     `mapstructure:"candle_limit"`
}

// RiskConfig 管理风控参数。
type RiskConfig struct {
	MaxPositionPercent float64 `mapstructure:"max_position_percent"`
	MaxDrawdown        float64 `mapstructure:"max_drawdown"`
	MaxDailyLoss       float64 `mapstructure:"max_daily_loss"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	DrawdownThreshold  float64 `mapstructure:"drawdown_threshold"`
	RecentTradeCount   int     `mapstructure:"recent_trade_count"`
}

// ExecutionConfig 控制下单重试行为。
type ExecutionConfig struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryDeadline time.Duration `mapstructure:"retry_deadline"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制周期任务节奏。
type SchedulerConfig struct {
	SignalInterval  time.Duration `mapstructure:"signal_interval"`
	RetrainInterval time.Duration `mapstructure:"retrain_interval"`
	ReportInterval  time.Duration `mapstructure:"report_interval"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`
}

// TelegramConfig 控制告警通道。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Market.Name == "" {
		err = multierr.Append(err, errors.New("market.name 不能为空"))
	}
	if c.Market.Symbol == "" {
		err = multierr.Append(err, errors.New("market.symbol 不能为空"))
	}
	if c.Market.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("market.retry.max_attempts 必须大于0"))
	}
	if c.Market.Retry.MinDelay <= 0 || c.Market.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("market.retry.delay 必须为正"))
	}
	if c.Market.Retry.MinDelay > c.Market.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("market.retry.min_delay 不能大于 max_delay"))
	}
	if c.Trade.Name == "" {
		err = multierr.Append(err, errors.New("trade.name 不能为空"))
	}
	if c.Trade.Symbol == "" {
		err = multierr.Append(err, errors.New("trade.symbol 不能为空"))
	}
	if !c.App.Simulation && (c.Trade.APIKey == "" || c.Trade.APISecret == "") {
		err = multierr.Append(err, errors.New("实盘模式需要配置 trade.api_key 与 trade.api_secret"))
	}
	if c.Oracle.APIKey == "" {
		err = multierr.Append(err, errors.New("oracle.api_key 不能为空"))
	}
	if c.Oracle.Model == "" {
		err = multierr.Append(err, errors.New("oracle.model 不能为空"))
	}
	if c.Oracle.Timeout <= 0 {
		err = multierr.Append(err, errors.New("oracle.timeout 必须大于0"))
	}
	if c.Oracle.MaxCallsPerHour <= 0 {
		err = multierr.Append(err, errors.New("oracle.max_calls_per_hour 必须大于0"))
	}
	if c.Trigger.MinScore < 0 || c.Trigger.MinScore > 1 {
		err = multierr.Append(err, errors.New("trigger.min_score 必须位于[0,1]"))
	}
	if c.Trigger.CandleLimit <= 0 {
		err = multierr.Append(err, errors.New("trigger.candle_limit 必须大于0"))
	}
	if c.Risk.MaxPositionPercent <= 0 || c.Risk.MaxPositionPercent > 1 {
		err = multierr.Append(err, errors.New("risk.max_position_percent 必须位于(0,1]"))
	}
	if c.Risk.MaxDrawdown <= 0 {
		err = multierr.Append(err, errors.New("risk.max_drawdown 必须大于0"))
	}
	if c.Risk.MaxDailyLoss <= 0 {
		err = multierr.Append(err, errors.New("risk.max_daily_loss 必须大于0"))
	}
	if c.Risk.MinConfidence <= 0 || c.Risk.MinConfidence > 1 {
		err = multierr.Append(err, errors.New("risk.min_confidence 必须位于(0,1]"))
	}
	if c.Risk.DrawdownThreshold <= 0 {
		err = multierr.Append(err, errors.New("risk.drawdown_threshold 必须大于0"))
	}
	if c.Risk.RecentTradeCount <= 0 {
		err = multierr.Append(err, errors.New("risk.recent_trade_count 必须大于0"))
	}
	if c.Execution.RetryInterval <= 0 {
		err = multierr.Append(err, errors.New("execution.retry_interval 必须大于0"))
	}
	if c.Execution.RetryDeadline <= 0 {
		err = multierr.Append(err, errors.New("execution.retry_deadline 必须大于0"))
	}
	if c.Execution.RetryInterval > c.Execution.RetryDeadline {
		err = multierr.Append(err, errors.New("execution.retry_interval 不能大于 retry_deadline"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Scheduler.SignalInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.signal_interval 必须大于0"))
	}
	if c.Scheduler.RetrainInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.retrain_interval 必须大于0"))
	}
	if c.Scheduler.ReportInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.report_interval 必须大于0"))
	}
	if c.Scheduler.RetrainInterval < c.Scheduler.SignalInterval {
		err = multierr.Append(err, errors.New("scheduler.retrain_interval 不应小于 signal_interval"))
	}
	if c.Scheduler.ReportInterval < c.Scheduler.RetrainInterval {
		err = multierr.Append(err, errors.New("scheduler.report_interval 不应小于 retrain_interval"))
	}
	if c.Scheduler.StopTimeout <= 0 {
		err = multierr.Append(err, errors.New("scheduler.stop_timeout 必须大于0"))
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		err = multierr.Append(err, errors.New("启用 telegram 告警需要配置 bot_token 与 chat_id"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
