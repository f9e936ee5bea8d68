package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the lookup surface. The web layer maps these to
// not-found responses, distinct from validation and remote errors.
var (
	ErrPreviewNotFound   = errors.New("preview data not found or expired")
	ErrOperationNotFound = errors.New("operation not found")
)

// ErrInvalidInput marks request parameters rejected before any remote
// call, such as a malformed ticket key or an oversize JQL query.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError carries the full validation result across the service
// boundary when an upload is rejected.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	msg := e.Result.Message
	if len(e.Result.RowErrors) > 0 {
		msg += ": " + strings.Join(e.Result.RowErrors, "; ")
	}
	return msg
}

// ConfigError reports an incomplete or placeholder Jira configuration.
// It is fatal to the requested operation, not to the process.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("jira configuration error: %s", e.Reason)
}
