package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultErrorPolicy    = ErrorPolicyReport
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvLogSources = "CRILOG_LOG_SOURCES"
	EnvOnError    = "CRILOG_ON_ERROR"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources: []string{},
		OnError:    DefaultErrorPolicy,
	}
}

// FromEnvironment returns the default configuration with the CRILOG_*
// environment overrides applied, for runs without a config file.
func FromEnvironment() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	return cfg
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if sources := os.Getenv(EnvLogSources); sources != "" {
		var list []string
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		c.LogSources = list
	}

	if policy := os.Getenv(EnvOnError); policy != "" {
		c.OnError = ErrorPolicy(policy)
	}
}

// expandWebhookTokens resolves ${VAR} and $VAR tokens once, at load time.
func (c *Config) expandWebhookTokens() {
	for i := range c.Webhooks {
		c.Webhooks[i].Token = expandEnvVar(c.Webhooks[i].Token)
	}
}
