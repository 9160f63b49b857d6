// Package config manages application configuration from defaults, an optional
// config.yaml file, and BOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all components:
// logging, Telegram transport, database, AI integration, the admin API server,
// and the task scheduler.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds bot credentials and the join-request policy for the
// watched chat. WatchedChatID of zero disables join-request collection.
type TelegramConfig struct {
	Token                   string `mapstructure:"token"                      validate:"required"`
	WatchedChatID           int64  `mapstructure:"watched_chat_id"`
	FreshAccountIDThreshold int64  `mapstructure:"fresh_account_id_threshold" validate:"gt=0"`
	JoinRequestBatchLimit   int    `mapstructure:"join_request_batch_limit"   validate:"min=1,max=1000"`
}

// DatabaseConfig holds the SQLite database location and the timeout applied to
// a single store operation.
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"              validate:"required"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=1s,max=5m"`
}

// AIConfig configures the external completion service used for digests and
// activity commentary.
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0,max=1m"`
}

// ServerConfig configures the admin JSON API. Basic auth is enforced only when
// both AdminUsername and AdminPassword are set.
type ServerConfig struct {
	Addr          string `mapstructure:"addr" validate:"required"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// HasAuth reports whether basic auth credentials are configured.
func (c ServerConfig) HasAuth() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named scheduled task and sets its run interval.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"omitempty,min=1s"`
}

// Load reads configuration from the given YAML file, layers BOT_* environment
// variables on top of defaults, and validates the result. A missing config
// file is not an error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
