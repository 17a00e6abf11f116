package vehicle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a tuning value outside its allowed range.
	ErrInvalidConfig = errors.New("invalid vehicle config")

	// ErrMissingWheel is returned when one of the four actuators is not wired.
	ErrMissingWheel = errors.New("wheel actuator not assigned")

	// ErrMissingBody is returned when the rigid body is not wired.
	ErrMissingBody = errors.New("rigid body not assigned")

	// ErrMissingTransform is returned when a wheel has no visual transform to drive.
	ErrMissingTransform = errors.New("wheel transform not assigned")

	// ErrBaselineMismatch is returned when an actuator's lateral stiffness differs
	// from the configured baseline at startup.
	ErrBaselineMismatch = errors.New("wheel stiffness does not match baseline")
)

// ConfigError is the startup failure returned by NewController and NewPoseSync.
// Field names the offending config key or wheel.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("vehicle config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ConfigError{Field: field, Err: fmt.Errorf("%w: %w", ErrInvalidConfig, err)}
}
