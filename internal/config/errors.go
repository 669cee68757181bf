// Package config provides configuration management for the linkhound application.
package config

import (
	"fmt"
)

// ValidationError represents an error in configuration validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid config: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid config: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

// BindError represents an error binding an environment variable.
type BindError struct {
	Key string
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind environment variable for %q: %v", e.Key, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
