package manifest

import (
	"errors"
	"fmt"
)

// CompilationError indicates that project or schema metadata could not be
// parsed or validated. Compilation errors are always fatal to the run,
// regardless of the strictness setting.
type CompilationError struct {
	Path string // file the error originated from, if known
	Err  error
}

func (e *CompilationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("compilation error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("compilation error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// NewCompilationError creates a new CompilationError
func NewCompilationError(path string, err error) *CompilationError {
	return &CompilationError{Path: path, Err: err}
}

// IsCompilationError checks if the error is or wraps a CompilationError
func IsCompilationError(err error) bool {
	var compErr *CompilationError
	return err != nil && errors.As(err, &compErr)
}
