package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the DAYKEEP_ prefix with
// underscores for nesting (DAYKEEP_SERVER_PORT, DAYKEEP_SYNC_GIST_TOKEN)
// and take precedence over values from the config file, which in turn
// override the defaults. Returns a populated Config struct or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults. Registering them also makes the keys visible to
	// AutomaticEnv during Unmarshal.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("sync.gist_id", "")
	v.SetDefault("sync.gist_token", "")
	v.SetDefault("sync.base_url", "")
	v.SetDefault("sync.push_debounce", 1*time.Second)
	v.SetDefault("sync.pull_delay", 2*time.Second)
	v.SetDefault("sync.grace_window", 5*time.Second)
	v.SetDefault("sync.retention", 30*24*time.Hour)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables win over everything.
	v.SetEnvPrefix("DAYKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
