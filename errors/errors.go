// Package errors provides the standardized error taxonomy for the hrpc
// framework: configuration errors, dependency errors, domain errors,
// scope protocol violations, and the cause-chaining used during request
// teardown.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Class represents the classification of errors for handling purposes.
type Class int

const (
	// ClassConfig represents invalid or missing boot-time configuration.
	// Fatal at boot; never occurs at request time.
	ClassConfig Class = iota
	// ClassDependency represents an unsatisfied capability key, either a
	// plugin requirement at boot or an unregistered key at request time.
	ClassDependency
	// ClassDomain represents an error raised intentionally by service
	// logic; always mapped to a structured error response.
	ClassDomain
	// ClassProtocol represents a scope participant breaking the
	// enter/exit contract. A framework-level defect, not application logic.
	ClassProtocol
	// ClassInternal represents anything else escaping a handler or
	// teardown; logged in full, reported generically.
	ClassInternal
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassDependency:
		return "dependency"
	case ClassDomain:
		return "domain"
	case ClassProtocol:
		return "protocol"
	case ClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ConfigError is a boot-time configuration failure. It aborts startup.
type ConfigError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Message, e.Err)
	}
	return "config: " + e.Message
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfig creates a boot-time configuration error.
func NewConfig(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// WrapConfig wraps an underlying error as a configuration error.
func WrapConfig(err error, format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...), Err: err}
}

// DependencyError reports an unsatisfied capability key. At boot it names
// the plugin whose requires cannot be met; at request time it names the key
// passed to Require.
type DependencyError struct {
	Plugin string   // offending plugin, empty for request-time failures
	Keys   []string // missing capability keys
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	keys := strings.Join(e.Keys, ", ")
	if e.Plugin != "" {
		return fmt.Sprintf("the requires %s of plugin %s is missing", keys, e.Plugin)
	}
	return fmt.Sprintf("dependency %q not exists", keys)
}

// NewDependency creates a request-time dependency error for a single key.
func NewDependency(key string) *DependencyError {
	return &DependencyError{Keys: []string{key}}
}

// NewPluginDependency creates a boot-time dependency error naming the
// plugin and its missing capability keys.
func NewPluginDependency(plugin string, missing []string) *DependencyError {
	return &DependencyError{Plugin: plugin, Keys: missing}
}

// ProtocolViolation reports a scope participant breaking the two-phase
// contract: completing enter without signaling ready, signaling ready more
// than once, or not terminating after being resumed during exit. Always
// surfaced, never silently absorbed.
type ProtocolViolation struct {
	Scope  string // participant name, for diagnostics
	Reason string
}

// Error implements the error interface.
func (e *ProtocolViolation) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("scope %s: protocol violation: %s", e.Scope, e.Reason)
	}
	return "protocol violation: " + e.Reason
}

// NewProtocolViolation creates a scope protocol violation.
func NewProtocolViolation(scope, format string, args ...any) *ProtocolViolation {
	return &ProtocolViolation{Scope: scope, Reason: fmt.Sprintf(format, args...)}
}

// Error is a domain error raised intentionally by service logic. It carries
// the machine-readable code and HTTP status used to build the structured
// error response.
type Error struct {
	Code    string `json:"error"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithData returns a copy of the error carrying response payload data.
func (e *Error) WithData(data any) *Error {
	clone := *e
	clone.Data = data
	return &clone
}

// Common domain error constructors. Service code may also build Error
// values directly for application-specific codes.

// NewNotFound reports an unknown service or method.
func NewNotFound(format string, args ...any) *Error {
	return &Error{Code: "Hrpc.NotFound", Status: http.StatusNotFound,
		Message: fmt.Sprintf(format, args...)}
}

// NewMethodNotAllowed reports a call with the wrong transport verb.
func NewMethodNotAllowed(format string, args ...any) *Error {
	return &Error{Code: "Hrpc.MethodNotAllowed", Status: http.StatusMethodNotAllowed,
		Message: fmt.Sprintf(format, args...)}
}

// NewInvalidParams reports malformed call parameters.
func NewInvalidParams(format string, args ...any) *Error {
	return &Error{Code: "Hrpc.InvalidParams", Status: http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...)}
}

// NewTooManyRequests reports rate-limit rejection.
func NewTooManyRequests(format string, args ...any) *Error {
	return &Error{Code: "Hrpc.TooManyRequests", Status: http.StatusTooManyRequests,
		Message: fmt.Sprintf(format, args...)}
}

// NewInternal creates the generic internal failure reported to callers when
// an unexpected error escapes. The original error is logged, never leaked.
func NewInternal() *Error {
	return &Error{Code: "Hrpc.InternalError", Status: http.StatusInternalServerError,
		Message: "server internal error"}
}

// Classify returns the error class for an error, walking the wrap chain.
func Classify(err error) Class {
	if err == nil {
		return ClassInternal
	}
	var (
		ce *ConfigError
		de *DependencyError
		pv *ProtocolViolation
		he *Error
	)
	switch {
	case stderrors.As(err, &pv):
		return ClassProtocol
	case stderrors.As(err, &ce):
		return ClassConfig
	case stderrors.As(err, &de):
		return ClassDependency
	case stderrors.As(err, &he):
		return ClassDomain
	default:
		return ClassInternal
	}
}

// IsDependency checks whether err is (or wraps) a dependency error.
func IsDependency(err error) bool {
	var de *DependencyError
	return stderrors.As(err, &de)
}

// IsProtocolViolation checks whether err is (or wraps) a protocol violation.
func IsProtocolViolation(err error) bool {
	var pv *ProtocolViolation
	return stderrors.As(err, &pv)
}

// AsDomain extracts a domain error from err's wrap chain.
func AsDomain(err error) (*Error, bool) {
	var he *Error
	ok := stderrors.As(err, &he)
	return he, ok
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}
