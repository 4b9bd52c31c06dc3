// Package config loads dynamodel settings from the environment and config
// files, and builds the DynamoDB client and logger they describe.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, as in DYNAMODEL_REGION.
const EnvPrefix = "DYNAMODEL"

// Config holds connection and logging settings.
type Config struct {
	Region          string        `mapstructure:"region" validate:"required"`
	Endpoint        string        `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string        `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string        `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	Table           string        `mapstructure:"table"`
	PaginationTTL   time.Duration `mapstructure:"pagination_ttl" validate:"gte=0"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=text json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "us-east-1")
	v.SetDefault("endpoint", "")
	v.SetDefault("access_key_id", "")
	v.SetDefault("secret_access_key", "")
	v.SetDefault("table", "")
	v.SetDefault("pagination_ttl", 24*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads a .env file if present, then a dynamodel.{yaml,json,toml} file
// from the given directories, then DYNAMODEL_* environment variables. Later
// sources override earlier ones.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("dynamodel")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
