package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of compass-api. Values come
// from an optional YAML file overridden by COMPASS_* environment
// variables (COMPASS_SERVER_ADDR, COMPASS_AUTH_SIGNING_SECRET, ...).
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		// DSN empty means in-memory stores; useful for development and tests.
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Auth struct {
		// SigningSecret signs invitation and session tokens. Required.
		SigningSecret string `mapstructure:"signing_secret"`
		// AdminAPIKey guards the trusted management routes. Required.
		AdminAPIKey string `mapstructure:"admin_api_key"`
	} `mapstructure:"auth"`

	Invitations struct {
		// DefaultExpiryDays applies when a dispatch request does not name
		// an expiry. Hard-capped at 7 by the token layer either way.
		DefaultExpiryDays int `mapstructure:"default_expiry_days"`
	} `mapstructure:"invitations"`

	RateLimit struct {
		ValidatePerMinute   int64 `mapstructure:"validate_per_minute"`
		UpdateItemPerMinute int64 `mapstructure:"update_item_per_minute"`
		// HTTPPerSecond is the coarse per-IP budget enforced at the edge
		// before any handler runs.
		HTTPPerSecond float64 `mapstructure:"http_per_second"`
		HTTPBurst     int     `mapstructure:"http_burst"`
	} `mapstructure:"ratelimit"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // text|json
	} `mapstructure:"logging"`
}

// Load reads configuration from file and environment with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COMPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.admin_api_key", "")

	v.SetDefault("invitations.default_expiry_days", 7)

	v.SetDefault("ratelimit.validate_per_minute", 10)
	v.SetDefault("ratelimit.update_item_per_minute", 30)
	v.SetDefault("ratelimit.http_per_second", 50)
	v.SetDefault("ratelimit.http_burst", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if cfgFile := os.Getenv("COMPASS_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("compass")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/compass")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		return errors.New("auth.signing_secret must be set")
	}
	if strings.TrimSpace(c.Auth.AdminAPIKey) == "" {
		return errors.New("auth.admin_api_key must be set")
	}
	if c.Invitations.DefaultExpiryDays <= 0 {
		return errors.New("invitations.default_expiry_days must be positive")
	}
	if c.RateLimit.ValidatePerMinute <= 0 || c.RateLimit.UpdateItemPerMinute <= 0 {
		return errors.New("ratelimit budgets must be positive")
	}
	return nil
}
