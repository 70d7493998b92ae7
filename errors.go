package sanitize

import (
	"errors"
	"fmt"
)

var (
	// ErrNestingLimitTooLow is returned when a nesting limit is configured
	// that is not a positive integer.
	ErrNestingLimitTooLow = errors.New("nesting limit too low")

	// ErrUnknownCSSProperty is returned when a CSS whitelist names a
	// property the default schema does not know.
	ErrUnknownCSSProperty = errors.New("unknown css property")

	// ErrNoPolicy is returned by New when called without a policy.
	ErrNoPolicy = errors.New("no policy")
)

// ConfigError is a construction-time failure: it names the offending
// configuration field and wraps a sentinel for errors.Is checks.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid configuration for %s", e.Field)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Err.Error())
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
