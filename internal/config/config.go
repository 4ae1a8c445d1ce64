// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Accounts  []string        `mapstructure:"accounts" yaml:"accounts"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots" yaml:"snapshots"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TargetConfig identifies the reward surfaces to work against.
type TargetConfig struct {
	// URL is the primary reward surface.
	URL string `mapstructure:"url" yaml:"url"`
	// BonusURL is an optional secondary surface enumerated after the primary
	// one within the same account run. Empty disables the second pass.
	BonusURL string `mapstructure:"bonus_url" yaml:"bonus_url"`
	// SectionKeywords override the default vocabulary used to spot named
	// reward sections. Absence of a match never aborts a run.
	SectionKeywords []string `mapstructure:"section_keywords" yaml:"section_keywords"`
}

// BatchConfig tunes the pacing and scheduling of account batches.
type BatchConfig struct {
	// InterAccountDelay is the minimum gap between two account runs.
	InterAccountDelay time.Duration `mapstructure:"inter_account_delay" yaml:"inter_account_delay"`
	// InterControlDelay is the settling gap between two control activations
	// within one account run.
	InterControlDelay time.Duration `mapstructure:"inter_control_delay" yaml:"inter_control_delay"`
	// Schedule is a cron expression for the recurring trigger used by the
	// watch command.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig bounds every navigation and action with explicit timeouts.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	// SettleTimeout caps how long the validator polls for a post-activation
	// text change before declaring the outcome ambiguous.
	SettleTimeout time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// SnapshotsConfig controls the diagnostic screenshot sink.
type SnapshotsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "claimsweep")
	v.SetDefault("logger.log_file", "claimsweep.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Batch --
	v.SetDefault("batch.inter_account_delay", "45s")
	v.SetDefault("batch.inter_control_delay", "3s")
	v.SetDefault("batch.schedule", "0 9 * * *")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.action_timeout", "15s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.settle_timeout", "5s")

	// -- Snapshots --
	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.dir", "snapshots")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the static defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return fmt.Errorf("target.url is a required configuration field")
	}
	if c.Batch.InterAccountDelay < 0 {
		return fmt.Errorf("batch.inter_account_delay must not be negative")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.ActionTimeout <= 0 {
		return fmt.Errorf("network.action_timeout must be a positive duration")
	}
	return nil
}
