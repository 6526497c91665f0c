package policy

import (
	"errors"
	"fmt"

	"github.com/codeready-toolchain/logmask/pkg/masking"
)

var (
	// ErrInvalidPattern indicates a pattern failed to compile
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidPath indicates a malformed sensitive path
	ErrInvalidPath = masking.ErrInvalidPath

	// ErrUnknownCatalogEntry indicates a pattern references a missing catalog entry
	ErrUnknownCatalogEntry = errors.New("unknown catalog entry")

	// ErrUnknownGroup indicates a pattern references a missing catalog group
	ErrUnknownGroup = errors.New("unknown catalog group")

	// ErrUnknownPreset indicates a reference to a preset that does not exist
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrAmbiguousPattern indicates a pattern entry sets none or more than one
	// of catalog, group and pattern
	ErrAmbiguousPattern = errors.New("pattern entry must set exactly one of catalog, group or pattern")
)

// ConfigurationError reports an invalid policy detected while resolving it.
// A policy that produced a ConfigurationError must not be used.
type ConfigurationError struct {
	Source string // Layer the value came from: a preset name, "base[i]" or "override"
	Field  string // patterns, sensitive_paths or presets
	Index  int    // Position within Field
	Value  string // Offending value
	Err    error  // Underlying error
}

// Error returns formatted error message
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s[%d] %q: %v", e.Source, e.Field, e.Index, e.Value, e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func newConfigurationError(source, field string, index int, value string, err error) *ConfigurationError {
	return &ConfigurationError{
		Source: source,
		Field:  field,
		Index:  index,
		Value:  value,
		Err:    err,
	}
}
