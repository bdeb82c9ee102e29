package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Group errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidElement  = fmt.Errorf("invalid element")

	// Journal errors
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrSampleNotFound  = fmt.Errorf("sample not found")

	// Simulation errors
	ErrNotConverged = fmt.Errorf("group did not converge")

	// Playback errors
	ErrUnsupportedFormat  = fmt.Errorf("unsupported media format")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
