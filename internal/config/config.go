package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Sync    SyncConfig    `mapstructure:"sync"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig contains the local persistence settings. The task blob and
// the sync credential blob both live under DataDir.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// SyncConfig contains the remote synchronization settings. GistID and
// GistToken seed the credential store on first run; sync is considered
// configured only when both are non-empty. The timing knobs feed the
// reconciliation engine.
type SyncConfig struct {
	GistID    string `mapstructure:"gist_id"`
	GistToken string `mapstructure:"gist_token"`

	// BaseURL overrides the Gist API endpoint; empty means production.
	BaseURL string `mapstructure:"base_url"`

	PushDebounce time.Duration `mapstructure:"push_debounce"`
	PullDelay    time.Duration `mapstructure:"pull_delay"`
	GraceWindow  time.Duration `mapstructure:"grace_window"`
	Retention    time.Duration `mapstructure:"retention"`
}
