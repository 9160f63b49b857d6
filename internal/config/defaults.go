package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultDBPath             = "storage.db"
	DefaultDBOperationTimeout = 5 * time.Second

	DefaultAIModel       = "gemini-2.0-flash"
	DefaultAITemperature = 0.7
	DefaultAITimeout     = 30 * time.Second
	DefaultAIMaxRetries  = 2
	DefaultAIRetryDelay  = 5 * time.Second

	DefaultServerAddr = ":8000"

	DefaultFreshAccountIDThreshold = 7_000_000_000
	DefaultJoinRequestBatchLimit   = 100

	DefaultSQLMaintenanceInterval   = 24 * time.Hour
	DefaultJoinRequestCleanInterval = time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.operation_timeout", DefaultDBOperationTimeout)

	v.SetDefault("ai.model", DefaultAIModel)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.retry_delay", DefaultAIRetryDelay)

	v.SetDefault("server.addr", DefaultServerAddr)

	v.SetDefault("telegram.fresh_account_id_threshold", DefaultFreshAccountIDThreshold)
	v.SetDefault("telegram.join_request_batch_limit", DefaultJoinRequestBatchLimit)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.interval", DefaultSQLMaintenanceInterval)
	v.SetDefault("scheduler.tasks.join_request_clean.enabled", true)
	v.SetDefault("scheduler.tasks.join_request_clean.interval", DefaultJoinRequestCleanInterval)
}
