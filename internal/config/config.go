package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "trader"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.simulation", true)

	v.SetDefault("market.name", "binanceusdm")
	v.SetDefault("market.symbol", "BTC/USDT:USDT")
	v.SetDefault("market.use_sandbox", false)
	v.SetDefault("market.retry.max_attempts", 5)
	v.SetDefault("market.retry.min_delay", "500ms")
	v.SetDefault("market.retry.max_delay", "5s")

	v.SetDefault("trade.name", "binanceusdm")
	v.SetDefault("trade.symbol", "BTC/USDT:USDT")
	v.SetDefault("trade.api_key", "")
	v.SetDefault("trade.api_secret", "")
	v.SetDefault("trade.use_sandbox", false)

	v.SetDefault("oracle.base_url", "https://api.openai.com/v1")
	v.SetDefault("oracle.model", "gpt-4.1")
	v.SetDefault("oracle.timeout", "15s")
	v.SetDefault("oracle.max_calls_per_hour", 20)

	v.SetDefault("trigger.min_score", 0.60)
	v.SetDefault("trigger.candle_limit", 50)

	v.SetDefault("risk.max_position_percent", 0.10)
	v.SetDefault("risk.max_drawdown", 0.05)
	v.SetDefault("risk.max_daily_loss", 0.03)
	v.SetDefault("risk.min_confidence", 0.70)
	v.SetDefault("risk.drawdown_threshold", 0.05)
	v.SetDefault("risk.recent_trade_count", 50)

	v.SetDefault("execution.retry_interval", "500ms")
	v.SetDefault("execution.retry_deadline", "5s")

	v.SetDefault("database.path", "data/autotrader.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("scheduler.signal_interval", "10s")
	v.SetDefault("scheduler.retrain_interval", "1h")
	v.SetDefault("scheduler.report_interval", "24h")
	v.SetDefault("scheduler.stop_timeout", "10s")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
