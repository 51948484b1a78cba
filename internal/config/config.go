package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"replenishment-service/internal/modal"
)

// Config is the process configuration shared by the worker, starter and api commands.
type Config struct {
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT" envDefault:"localhost:7233"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE" envDefault:"default"`
	TaskQueue         string `env:"REPLENISH_TASK_QUEUE" envDefault:"REPLENISHMENT_TASK_QUEUE"`

	PolicyPath  string `env:"REPLENISH_POLICY_PATH" envDefault:"./config/policy.yaml"`
	DataDir     string `env:"REPLENISH_DATA_DIR" envDefault:"./data"`
	JournalPath string `env:"REPLENISH_JOURNAL_PATH" envDefault:"./data/journal.db"`

	RedisAddr     string `env:"REPLENISH_REDIS_ADDR"`
	RedisPassword string `env:"REPLENISH_REDIS_PASSWORD"`
	RedisDB       int    `env:"REPLENISH_REDIS_DB" envDefault:"0"`
	MySQLDSN      string `env:"REPLENISH_MYSQL_DSN"`
	MySQLMigrate  bool   `env:"REPLENISH_MYSQL_MIGRATE" envDefault:"false"`

	LogLevel            string        `env:"REPLENISH_LOG_LEVEL" envDefault:"info"`
	ActivityTimeout     time.Duration `env:"REPLENISH_ACTIVITY_TIMEOUT" envDefault:"10s"`
	ActivityMaxAttempts int32         `env:"REPLENISH_ACTIVITY_MAX_ATTEMPTS" envDefault:"1"`
	Parallelism         int           `env:"REPLENISH_PARALLELISM" envDefault:"1"`
	APIAddr             string        `env:"REPLENISH_API_ADDR" envDefault:":8090"`
}

// Load reads the process configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TemporalHostPort == "" {
		return fmt.Errorf("TEMPORAL_HOST_PORT is required")
	}
	if c.TaskQueue == "" {
		return fmt.Errorf("REPLENISH_TASK_QUEUE is required")
	}
	if c.ActivityTimeout <= 0 {
		return fmt.Errorf("REPLENISH_ACTIVITY_TIMEOUT must be positive")
	}
	if c.ActivityMaxAttempts < 1 {
		return fmt.Errorf("REPLENISH_ACTIVITY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("REPLENISH_PARALLELISM must be at least 1")
	}
	return nil
}

// LoadPolicy reads the replenishment policy document and rejects values that break its constraints.
func LoadPolicy(path string) (modal.Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("auto_approve", true)
	v.SetDefault("alert_channel", modal.DefaultAlertTopic)
	v.SetDefault("reorder_multiple", 1)

	if err := v.ReadInConfig(); err != nil {
		return modal.Policy{}, fmt.Errorf("read policy failed: %w", err)
	}

	var policy modal.Policy
	if err := v.Unmarshal(&policy); err != nil {
		return modal.Policy{}, fmt.Errorf("unmarshal policy failed: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return modal.Policy{}, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return policy, nil
}
