package sync

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the synchronizer, the guard and the engine.
// Callers match them with errors.Is.
var (
	// ErrWrongInvocationContext is returned when the working directory is not
	// the expected source checkout.
	ErrWrongInvocationContext = errors.New("wrong invocation context")

	// ErrMissingSource is returned when a source directory does not exist.
	ErrMissingSource = errors.New("source directory missing")

	// ErrEmptySource is returned when a source directory has no regular files.
	ErrEmptySource = errors.New("source directory empty")

	// ErrTargetUnwritable is returned when a target directory cannot be created.
	ErrTargetUnwritable = errors.New("target not writable")

	// ErrCopyFailed is matched by every *CopyError.
	ErrCopyFailed = errors.New("copy failed")

	// ErrComparison is matched by every *ComparisonError.
	ErrComparison = errors.New("comparison failed")
)

// CopyError reports a file that could not be written to its target
type CopyError struct {
	Name string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s: %v", e.Name, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

func (e *CopyError) Is(target error) bool { return target == ErrCopyFailed }

// ComparisonError reports a file that exists but could not be read for comparison
type ComparisonError struct {
	Path string
	Err  error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("compare %s: %v", e.Path, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }

func (e *ComparisonError) Is(target error) bool { return target == ErrComparison }
