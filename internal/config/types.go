package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Mothership MothershipConfig `mapstructure:"mothership"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 描述 HTTP 服务参数，APIKey 为入站请求的鉴权密钥。
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// MothershipConfig 描述对账服务（mothership）连接信息。
type MothershipConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// StrategyConfig 选择推荐引擎并控制均线窗口。
type StrategyConfig struct {
	Engine      string `mapstructure:"engine"` // ai | rule
	ShortWindow int    `mapstructure:"short_window"`
	LongWindow  int    `mapstructure:"long_window"`
}

// StorageConfig 管理平面文件存储路径。
type StorageConfig struct {
	DataDir         string `mapstructure:"data_dir"`
	PositionsFile   string `mapstructure:"positions_file"`
	TradeLogFile    string `mapstructure:"trade_log_file"`
	TransactionFile string `mapstructure:"transaction_file"`
}

// DatabaseConfig 管理监控事件库（SQLite）连接。
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

// EngineAI 与 EngineRule 为 strategy.engine 的合法取值。
const (
	EngineAI   = "ai"
	EngineRule = "rule"
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于(0,65535]"))
	}
	if c.Server.APIKey == "" {
		err = multierr.Append(err, errors.New("server.api_key 不能为空"))
	}
	if c.Server.ShutdownTimeout < 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 不能为负"))
	}

	engine := strings.ToLower(strings.TrimSpace(c.Strategy.Engine))
	if engine != EngineAI && engine != EngineRule {
		err = multierr.Append(err, fmt.Errorf("strategy.engine 取值非法: %s", c.Strategy.Engine))
	}
	if engine == EngineAI {
		if c.OpenAI.APIKey == "" {
			err = multierr.Append(err, errors.New("openai.api_key 不能为空 (strategy.engine=ai)"))
		}
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	}
	if c.Strategy.ShortWindow <= 0 {
		err = multierr.Append(err, errors.New("strategy.short_window 必须大于0"))
	}
	if c.Strategy.LongWindow < c.Strategy.ShortWindow {
		err = multierr.Append(err, errors.New("strategy.long_window 不能小于 short_window"))
	}

	if c.Mothership.BaseURL == "" {
		err = multierr.Append(err, errors.New("mothership.base_url 不能为空"))
	}
	if c.Mothership.APIKey == "" {
		err = multierr.Append(err, errors.New("mothership.api_key 不能为空"))
	}
	if c.Mothership.Timeout <= 0 {
		err = multierr.Append(err, errors.New("mothership.timeout 必须大于0"))
	}
	if c.Mothership.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("mothership.retry.max_attempts 必须大于0"))
	}
	if c.Mothership.Retry.MaxAttempts > 1 {
		if c.Mothership.Retry.MinDelay <= 0 || c.Mothership.Retry.MaxDelay <= 0 {
			err = multierr.Append(err, errors.New("mothership.retry.delay 必须为正"))
		}
		if c.Mothership.Retry.MinDelay > c.Mothership.Retry.MaxDelay {
			err = multierr.Append(err, errors.New("mothership.retry.min_delay 不能大于 max_delay"))
		}
	}

	if c.Storage.DataDir == "" {
		err = multierr.Append(err, errors.New("storage.data_dir 不能为空"))
	}
	if c.Storage.PositionsFile == "" {
		err = multierr.Append(err, errors.New("storage.positions_file 不能为空"))
	}
	if c.Storage.TradeLogFile == "" {
		err = multierr.Append(err, errors.New("storage.trade_log_file 不能为空"))
	}
	if c.Storage.TransactionFile == "" {
		err = multierr.Append(err, errors.New("storage.transaction_file 不能为空"))
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

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
