// Package config provides configuration management for the regwatch
// application. It handles loading, validation, and access to
// configuration values from YAML files and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/regwatch/regwatch/internal/database"
	"github.com/regwatch/regwatch/internal/logger"
	"github.com/regwatch/regwatch/internal/notify"
	"github.com/regwatch/regwatch/internal/sources"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug"       yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// StorageConfig holds artifact storage settings.
type StorageConfig struct {
	ArtifactDir string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
}

// AnalyzerConfig holds LLM gateway settings.
type AnalyzerConfig struct {
	Enabled        bool          `mapstructure:"enabled"          yaml:"enabled"`
	GatewayURL     string        `mapstructure:"gateway_url"      yaml:"gateway_url"`
	Model          string        `mapstructure:"model"            yaml:"model"`
	Timeout        time.Duration `mapstructure:"timeout"          yaml:"timeout"`
	MaxPromptChars int           `mapstructure:"max_prompt_chars" yaml:"max_prompt_chars"`
}

// OCRConfig holds OCR sidecar settings.
type OCRConfig struct {
	Enabled bool          `mapstructure:"enabled"  yaml:"enabled"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// ScheduleConfig holds the recurring run schedule.
type ScheduleConfig struct {
	Enabled bool  `mapstructure:"enabled" yaml:"enabled"`
	Hours   []int `mapstructure:"hours"   yaml:"hours"`
}

// RunnerConfig holds pipeline run settings.
type RunnerConfig struct {
	CrawlTimeout time.Duration `mapstructure:"crawl_timeout" yaml:"crawl_timeout"`
}

// Config represents the application configuration.
type Config struct {
	App      AppConfig          `mapstructure:"app"      yaml:"app"`
	Logger   logger.Config      `mapstructure:"logger"   yaml:"logger"`
	Server   ServerConfig       `mapstructure:"server"   yaml:"server"`
	Database database.Config    `mapstructure:"database" yaml:"database"`
	Crawler  sources.Config     `mapstructure:"crawler"  yaml:"crawler"`
	Storage  StorageConfig      `mapstructure:"storage"  yaml:"storage"`
	Analyzer AnalyzerConfig     `mapstructure:"analyzer" yaml:"analyzer"`
	OCR      OCRConfig          `mapstructure:"ocr"      yaml:"ocr"`
	SMTP     notify.SMTPConfig  `mapstructure:"smtp"     yaml:"smtp"`
	Schedule ScheduleConfig     `mapstructure:"schedule" yaml:"schedule"`
	Runner   RunnerConfig       `mapstructure:"runner"   yaml:"runner"`
}

// Load unmarshals the Viper state into a Config. InitializeViper must
// be called first.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Storage.ArtifactDir == "" {
		return fmt.Errorf("storage.artifact_dir must not be empty")
	}
	if c.OCR.Enabled && c.OCR.BaseURL == "" {
		return fmt.Errorf("ocr.base_url required when ocr is enabled")
	}
	for _, h := range c.Schedule.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("schedule.hours entry %d out of range", h)
		}
	}
	return nil
}
