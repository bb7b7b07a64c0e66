// Package errors defines the sentinel errors shared across the ashpkg engine
// and helpers for wrapping them with context.
package errors

import "fmt"

// Common error types.
var (
	// ErrNotFound is returned when a package, file, or recognizable
	// source-tree structure is absent.
	ErrNotFound = fmt.Errorf("not found")

	// ErrAlreadyExists is returned when an install target exists on disk and
	// does not come from the same trusted source.
	ErrAlreadyExists = fmt.Errorf("already exists")

	// ErrConflict is returned when shared files are owned by another package.
	// Recoverable by retrying the operation with Force.
	ErrConflict = fmt.Errorf("file conflict")

	// ErrAmbiguousSelection is returned when an entrypoint, plugin variant,
	// or release asset choice is needed from the caller.
	ErrAmbiguousSelection = fmt.Errorf("selection required")

	// ErrRateLimited is returned when the hosted API throttles requests.
	// Recoverable by waiting or configuring an API token.
	ErrRateLimited = fmt.Errorf("api rate limit exceeded")

	// ErrManualInterventionRequired is returned when a package cannot be
	// auto-updated and the caller must supply fresh files.
	ErrManualInterventionRequired = fmt.Errorf("manual update required")

	// ErrTransportFailure is returned for clone/download/network errors.
	ErrTransportFailure = fmt.Errorf("transport failure")

	// ErrInvalidPath is returned when a file or directory path is invalid.
	ErrInvalidPath = fmt.Errorf("invalid path")

	// Config errors.
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")

	// ErrInvalidPackageKind is returned when a kind other than addon or
	// plugin is supplied.
	ErrInvalidPackageKind = fmt.Errorf("invalid package kind")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
