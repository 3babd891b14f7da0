package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInput matches every InputError
	ErrInput = errors.New("invalid input")

	// ErrConfig matches every ConfigError
	ErrConfig = errors.New("invalid configuration")

	// ErrNoPath matches every NoPathError
	ErrNoPath = errors.New("no path")
)

// InputError reports a malformed grid or an out-of-range cell lookup.
// Row and Col are 1-based; zero means not applicable.
type InputError struct {
	Row    int
	Col    int
	Reason string
}

func (e *InputError) Error() string {
	switch {
	case e.Row > 0 && e.Col > 0:
		return fmt.Sprintf("%v: %s at row %d, col %d", ErrInput, e.Reason, e.Row, e.Col)
	case e.Row > 0:
		return fmt.Sprintf("%v: %s at row %d", ErrInput, e.Reason, e.Row)
	}
	return fmt.Sprintf("%v: %s", ErrInput, e.Reason)
}

// Is makes errors.Is(err, ErrInput) hold
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// ConfigError reports an invalid solver configuration
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrConfig, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfig) hold
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NoPathError is returned when the frontier empties before the goal is
// reached. It is an expected outcome for tight run limits, not a defect.
type NoPathError struct {
	Goal     Position
	MaxRun   int
	Expanded int
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("%v: goal %s unreachable with max run %d after %d expansions",
		ErrNoPath, e.Goal, e.MaxRun, e.Expanded)
}

// Is makes errors.Is(err, ErrNoPath) hold
func (e *NoPathError) Is(target error) bool {
	return target == ErrNoPath
}
