// Package config provides configuration loading and validation for crilog.
package config

import (
	"time"

	"github.com/ccollicutt/crilog/pkg/cri"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources are files, globs or directories of CRI logs.
	LogSources []string `yaml:"log_sources"`

	// OnError is the policy for malformed lines.
	OnError ErrorPolicy `yaml:"on_error,omitempty"`

	// Streams restricts output to the listed streams (stdout, stderr).
	Streams []string `yaml:"streams,omitempty"`

	// Tags restricts output to the listed tags, e.g. F.
	Tags []string `yaml:"tags,omitempty"`

	// TimeRange drops entries older than now minus the range.
	TimeRange time.Duration `yaml:"time_range,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// compiledStreams is populated during validation.
	compiledStreams []cri.StreamType
}

// StreamTypes returns the validated stream filter.
func (c *Config) StreamTypes() []cri.StreamType {
	return c.compiledStreams
}

// ErrorPolicy determines what happens to lines that fail to parse.
type ErrorPolicy string

const (
	// ErrorPolicySkip drops malformed lines silently.
	ErrorPolicySkip ErrorPolicy = "skip"
	// ErrorPolicyReport drops malformed lines but lists them in the report (default).
	ErrorPolicyReport ErrorPolicy = "report"
	// ErrorPolicyFail stops at the first malformed line.
	ErrorPolicyFail ErrorPolicy = "fail"
)

// ParseErrorPolicy validates a policy name.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case ErrorPolicySkip, ErrorPolicyReport, ErrorPolicyFail:
		return p, nil
	default:
		return "", errInvalidPolicy(s)
	}
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnErrors fires only when malformed lines were found (default).
	WebhookTriggerOnErrors WebhookTrigger = "on_errors"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending parse reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_errors".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
