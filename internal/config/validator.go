package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the DaemonConfig using struct tags and cross-field
// rules. Returns an error with actionable messages.
func (c *DaemonConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateDrainWindow(); err != nil {
		return err
	}

	return nil
}

// validateDrainWindow ensures the drain window does not exceed the
// maximum execution time, since in-flight children past their own
// timeout are already reaped by the execution timeout path.
func (c *DaemonConfig) validateDrainWindow() error {
	if c.Daemon.DrainWindowSeconds > c.Daemon.MaxExecutionTimeSeconds {
		return fmt.Errorf("daemon.drain_window_seconds (%d) must not exceed daemon.max_execution_time_seconds (%d)",
			c.Daemon.DrainWindowSeconds, c.Daemon.MaxExecutionTimeSeconds)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a
// single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
