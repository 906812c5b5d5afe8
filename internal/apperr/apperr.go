// Package apperr defines the error taxonomy shared by the pipeline stages.
//
// Config and quota failures are sentinels matched with errors.Is. Upstream,
// parse and validation failures carry detail and are matched with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a missing credential or unusable configuration. It is
	// never retried and aborts the enclosing operation.
	ErrConfig = errors.New("configuration error")

	// ErrQuotaExceeded is returned once the search usage counter reaches its
	// monthly limit.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Config wraps ErrConfig with a formatted message.
func Config(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// UpstreamError is a non-success HTTP response from an external provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// ParseError is malformed content from the LLM or from a staged CSV cell.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError is a value outside its closed set, or a missing required value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsPermanent reports whether retrying err cannot change the outcome.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrQuotaExceeded)
}
