package policy

import "errors"

// Sentinel errors for the error taxonomy in spec.md §7. Adapters wrap these
// with fmt.Errorf("...: %w", ...) rather than inventing new error types.
var (
	ErrPolicyLoad           = errors.New("policy load error")
	ErrPatternCompile       = errors.New("pattern compile error")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrAccessDenied         = errors.New("access denied")
	ErrManipulationDetected = errors.New("manipulation detected")
	ErrExecutionTimeout     = errors.New("execution timeout")
	ErrExecution            = errors.New("execution error")
	ErrTransport            = errors.New("transport error")
)
