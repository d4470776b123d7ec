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
	envPrefix         = "strategy"
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

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-5-nano")
	v.SetDefault("openai.timeout", "15s")

	v.SetDefault("mothership.timeout", "10s")
	// 对账调用默认不重试，重试需显式配置 max_attempts > 1。
	v.SetDefault("mothership.retry.max_attempts", 1)
	v.SetDefault("mothership.retry.min_delay", "500ms")
	v.SetDefault("mothership.retry.max_delay", "5s")

	v.SetDefault("strategy.engine", EngineAI)
	v.SetDefault("strategy.short_window", 3)
	v.SetDefault("strategy.long_window", 5)

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.positions_file", "current_positions.json")
	v.SetDefault("storage.trade_log_file", "trading_log.json")
	v.SetDefault("storage.transaction_file", "trading_history.json")

	v.SetDefault("database.path", "data/strategy_api.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
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
