package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/regwatch/regwatch/internal/analyze"
	"github.com/regwatch/regwatch/internal/job"
)

// InitializeViper initializes Viper configuration from environment
// variables and config files. This must be called before Load().
func InitializeViper() error {
	loadEnvFile()
	setupViper()
	setDefaults()
	readConfigFile()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	setupDevelopmentLogging()
	return nil
}

// loadEnvFile loads .env file (ignores error if file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// setupViper configures Viper for environment variable and config file reading.
func setupViper() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
}

// readConfigFile reads config file (ignores error if file doesn't exist).
func readConfigFile() {
	_ = viper.ReadInConfig()
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "regwatch",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	viper.SetDefault("server", map[string]any{
		"address": ":8080",
	})

	viper.SetDefault("database", map[string]any{
		"host":     "localhost",
		"port":     "5432",
		"user":     "regwatch",
		"password": "",
		"dbname":   "regwatch",
		"sslmode":  "disable",
	})

	viper.SetDefault("crawler", map[string]any{
		"user_agent":      "",
		"delay":           "3s",
		"parallelism":     2,
		"recency_days":    180,
		"request_timeout": "30s",
	})

	viper.SetDefault("storage", map[string]any{
		"artifact_dir": "data/documents",
	})

	viper.SetDefault("analyzer", map[string]any{
		"enabled":          true,
		"gateway_url":      "",
		"model":            "claude-3-haiku-20240307",
		"timeout":          "90s",
		"max_prompt_chars": analyze.DefaultMaxPromptChars,
	})

	viper.SetDefault("ocr", map[string]any{
		"enabled":  false,
		"base_url": "",
		"timeout":  "120s",
	})

	viper.SetDefault("smtp", map[string]any{
		"host":    "",
		"port":    587,
		"use_tls": true,
	})

	viper.SetDefault("schedule", map[string]any{
		"enabled": true,
		"hours":   job.DefaultRunHours,
	})

	viper.SetDefault("runner", map[string]any{
		"crawl_timeout": "15m",
	})
}

// bindEnvironmentVariables binds all environment variables to config keys.
func bindEnvironmentVariables() error {
	if err := bindAppEnvVars(); err != nil {
		return fmt.Errorf("failed to bind app env vars: %w", err)
	}
	if err := bindAnalyzerEnvVars(); err != nil {
		return fmt.Errorf("failed to bind analyzer env vars: %w", err)
	}
	if err := bindSMTPEnvVars(); err != nil {
		return fmt.Errorf("failed to bind smtp env vars: %w", err)
	}
	return nil
}

// bindAppEnvVars binds application and logger environment variables to config keys.
func bindAppEnvVars() error {
	if err := viper.BindEnv("app.environment", "APP_ENV"); err != nil {
		return fmt.Errorf("failed to bind APP_ENV: %w", err)
	}
	if err := viper.BindEnv("app.debug", "APP_DEBUG"); err != nil {
		return fmt.Errorf("failed to bind APP_DEBUG: %w", err)
	}
	if err := viper.BindEnv("logger.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := viper.BindEnv("logger.encoding", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	if err := viper.BindEnv("database.password", "DATABASE_PASSWORD", "POSTGRES_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind database password: %w", err)
	}
	return nil
}

// bindAnalyzerEnvVars binds LLM gateway and OCR environment variables.
func bindAnalyzerEnvVars() error {
	if err := viper.BindEnv("analyzer.gateway_url", "LLM_GATEWAY_URL"); err != nil {
		return fmt.Errorf("failed to bind LLM_GATEWAY_URL: %w", err)
	}
	if err := viper.BindEnv("analyzer.model", "LLM_MODEL"); err != nil {
		return fmt.Errorf("failed to bind LLM_MODEL: %w", err)
	}
	if err := viper.BindEnv("ocr.base_url", "OCR_BASE_URL"); err != nil {
		return fmt.Errorf("failed to bind OCR_BASE_URL: %w", err)
	}
	return nil
}

// bindSMTPEnvVars binds notification environment variables.
func bindSMTPEnvVars() error {
	if err := viper.BindEnv("smtp.host", "SMTP_HOST"); err != nil {
		return fmt.Errorf("failed to bind SMTP_HOST: %w", err)
	}
	if err := viper.BindEnv("smtp.port", "SMTP_PORT"); err != nil {
		return fmt.Errorf("failed to bind SMTP_PORT: %w", err)
	}
	if err := viper.BindEnv("smtp.username", "SMTP_USERNAME", "EMAIL_SENDER"); err != nil {
		return fmt.Errorf("failed to bind SMTP username: %w", err)
	}
	if err := viper.BindEnv("smtp.password", "SMTP_PASSWORD", "EMAIL_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind SMTP password: %w", err)
	}
	if err := viper.BindEnv("smtp.recipients", "ALERT_RECIPIENTS"); err != nil {
		return fmt.Errorf("failed to bind ALERT_RECIPIENTS: %w", err)
	}
	return nil
}

// setupDevelopmentLogging configures logging settings based on environment variables.
// Debug level is controlled by APP_DEBUG; development formatting by APP_ENV.
func setupDevelopmentLogging() {
	if viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
	}

	if viper.GetString("app.environment") == "development" {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}
}
