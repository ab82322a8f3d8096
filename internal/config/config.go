package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	APIHost     string `mapstructure:"api_host" validate:"required,url"`
	APIUser     string `mapstructure:"api_user"`
	APIPassword string `mapstructure:"api_password"`
	ContentType string `mapstructure:"content_type" validate:"required"`

	CallsFile           string        `mapstructure:"calls_file" validate:"required"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	CallIntervalSeconds int64         `mapstructure:"call_interval" validate:"gte=0"`
	CallInterval        time.Duration `mapstructure:"-"`

	ConnectTimeoutSeconds int64         `mapstructure:"connect_timeout_seconds" validate:"gt=0"`
	TimeoutSeconds        int64         `mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxRedirects          int           `mapstructure:"max_redirects" validate:"gte=0"`
	FollowRedirects       bool          `mapstructure:"follow_redirects"`
	Verbose               bool          `mapstructure:"verbose"`
	UserAgent             string        `mapstructure:"user_agent"`
	ConnectTimeout        time.Duration `mapstructure:"-"`
	Timeout               time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type" validate:"oneof=bbolt none disabled"`
	BBoltPath              string        `mapstructure:"bbolt_path" validate:"required_if=StorageType bbolt"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds" validate:"gt=0"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds" validate:"gt=0"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
}

var validate = validator.New()

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-apiclient")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_host", "")
	v.SetDefault("api_user", "")
	v.SetDefault("api_password", "")
	v.SetDefault("content_type", "application/json")
	v.SetDefault("calls_file", "./configs/calls.yaml")
	v.SetDefault("publishers_file", "") // optional, no publishers when empty
	v.SetDefault("call_interval", 0) // seconds, 0 runs once
	v.SetDefault("connect_timeout_seconds", 30)
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("max_redirects", 5)
	v.SetDefault("follow_redirects", true)
	v.SetDefault("verbose", false)
	v.SetDefault("user_agent", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and fills the derived durations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.CallInterval = time.Duration(c.CallIntervalSeconds) * time.Second
	c.ConnectTimeout = time.Duration(c.ConnectTimeoutSeconds) * time.Second
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	c.JournalTTL = time.Duration(c.JournalTTLSeconds) * time.Second
	c.JournalCleanupInterval = time.Duration(c.JournalCleanupSeconds) * time.Second
	return nil
}
