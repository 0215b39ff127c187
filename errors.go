package spatialgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/space"
)

var (
	// ErrNotFound is returned when a dataset, space or object does not exist.
	ErrNotFound = errors.New("not found")
)

// BuildError indicates that a dataset could not be built from its inputs.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type BuildError struct {
	Reason string
	cause  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build: %s", e.Reason)
}

func (e *BuildError) Unwrap() error { return e.cause }

// ErrDimensionMismatch indicates a position/space dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// QueryError indicates a malformed or unanswerable query.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type QueryError struct {
	Reason string
	cause  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query: %s", e.Reason)
}

func (e *QueryError) Unwrap() error { return e.cause }

func buildErr(cause error, format string, args ...any) error {
	return &BuildError{Reason: fmt.Sprintf(format, args...), cause: cause}
}

func queryErr(cause error, format string, args ...any) error {
	return &QueryError{Reason: fmt.Sprintf(format, args...), cause: cause}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, index.ErrDuplicateID) || errors.Is(err, index.ErrEmptyBuild) {
		return &BuildError{Reason: err.Error(), cause: err}
	}
	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, space.ErrMalformedShape) {
		return &QueryError{Reason: err.Error(), cause: err}
	}

	return err
}
