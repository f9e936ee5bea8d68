// Package config provides centralized configuration management for the
// application. It loads settings from environment variables with sensible
// defaults and validates them on startup to fail fast on misconfiguration.
//
// The one exception is the Jira credential block: an incomplete or
// placeholder Jira configuration does not stop the process, it only
// blocks batch submission later. Operators can boot the server, upload
// and preview spreadsheets, and fix credentials without a restart loop.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Jira      JiraConfig
	Upload    UploadConfig
	Batch     BatchConfig
	Retention RetentionConfig
	Rate      RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// JiraConfig holds the remote tracker credentials and call settings.
// All four identity values must be real (non-placeholder) before a batch
// can be submitted; see Check.
type JiraConfig struct {
	// BaseURL is the Jira instance URL, e.g. https://yourcompany.atlassian.net
	BaseURL string `env:"JIRA_BASE_URL"`

	// Email is the Jira account email (JIRA_USERNAME accepted for compatibility)
	Email string `env:"JIRA_EMAIL" envAlt:"JIRA_USERNAME"`

	// APIToken is the Jira API token
	APIToken string `env:"JIRA_API_TOKEN"`

	// ProjectKey is the default project for rows without a project_key cell
	ProjectKey string `env:"DEFAULT_PROJECT_KEY" envAlt:"JIRA_PROJECT_KEY"`

	// Timeout is the per-call ceiling for remote requests (default: 30s)
	Timeout time.Duration `env:"JIRA_TIMEOUT" default:"30s"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the advisory upload size limit in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel upload validations (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// BatchConfig holds ticket-creation batch settings.
type BatchConfig struct {
	// ItemDelay is the pause between consecutive create calls (default: 500ms)
	ItemDelay time.Duration `env:"BATCH_ITEM_DELAY" default:"500ms"`
}

// RetentionConfig controls how long in-memory state is kept.
type RetentionConfig struct {
	// PreviewMaxAge is how long unsubmitted previews survive (default: 1h)
	PreviewMaxAge time.Duration `env:"RETENTION_PREVIEW_MAX_AGE" default:"1h"`

	// OperationMaxAge is how long terminal operations survive (default: 24h)
	OperationMaxAge time.Duration `env:"RETENTION_OPERATION_MAX_AGE" default:"24h"`

	// SweepInterval is how often the background sweep runs (default: 10m)
	SweepInterval time.Duration `env:"RETENTION_SWEEP_INTERVAL" default:"10m"`
}

// RateLimitConfig holds per-IP request rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// placeholderValues are the sample credentials shipped in documentation.
// A config still carrying one of them is treated as unconfigured.
var placeholderValues = []string{
	"your-domain.atlassian.net",
	"your-email@domain.com",
	"your-api-token-here",
}

// Check reports whether the Jira block is complete and usable.
// Unlike Validate, it is called lazily, right before a batch submission
// or connection test, so a misconfigured server can still serve uploads.
func (c *JiraConfig) Check() error {
	var problems []string

	switch {
	case c.BaseURL == "":
		problems = append(problems, "JIRA_BASE_URL is not set")
	case isPlaceholder(c.BaseURL):
		problems = append(problems, "JIRA_BASE_URL still has its placeholder value")
	default:
		if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("JIRA_BASE_URL %q is not a valid http(s) URL", c.BaseURL))
		}
	}

	if c.Email == "" {
		problems = append(problems, "JIRA_EMAIL is not set")
	} else if isPlaceholder(c.Email) {
		problems = append(problems, "JIRA_EMAIL still has its placeholder value")
	}

	if c.APIToken == "" {
		problems = append(problems, "JIRA_API_TOKEN is not set")
	} else if isPlaceholder(c.APIToken) {
		problems = append(problems, "JIRA_API_TOKEN still has its placeholder value")
	}

	if c.ProjectKey == "" {
		problems = append(problems, "DEFAULT_PROJECT_KEY is not set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func isPlaceholder(v string) bool {
	for _, p := range placeholderValues {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String returns a safe representation of the config for logging.
// The API token is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Jira: {BaseURL: %q, Email: %q, APIToken: [MASKED], ProjectKey: %q}, ",
		c.Jira.BaseURL, c.Jira.Email, c.Jira.ProjectKey))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Batch: {ItemDelay: %s}, ", c.Batch.ItemDelay))
	b.WriteString(fmt.Sprintf("Retention: {Preview: %s, Operation: %s, Sweep: %s}, ",
		c.Retention.PreviewMaxAge, c.Retention.OperationMaxAge, c.Retention.SweepInterval))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
