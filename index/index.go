// Package index defines the capability set shared by all index bricks.
//
// A brick is a self-contained index implementation built once from a full
// record set and queried many times. Bricks never assume a physical record
// layout: callers supply extractor functions deriving keys, positions and
// identifiers from their own record types, which keeps every brick reusable
// over arbitrary data structures.
//
// All bricks are immutable after build and safe for concurrent lookups.
package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/space"
)

// KeyFunc extracts an index key from a record. Extraction must be pure: the
// same record always yields the same key.
type KeyFunc[R any, K comparable] func(R) K

// ValueFunc extracts an index value (typically an identifier) from a record.
type ValueFunc[R any, V comparable] func(R) V

// PositionFunc extracts an encoded spatial position from a record.
type PositionFunc[R any] func(R) space.Grid

// Exact is the capability set of exact-match bricks.
type Exact[K comparable, V any] interface {
	// Lookup returns all values stored under key. Absent keys yield an
	// empty result, not an error.
	Lookup(key K) []V
}

// Spatial is the capability set of volumetric bricks.
type Spatial[V any] interface {
	// Lookup returns the values stored exactly at the given position.
	Lookup(pos space.Grid) []V
	// LookupRange returns the values whose position lies within the
	// axis-aligned box [lo, hi], inclusive on every axis.
	LookupRange(lo, hi space.Grid) []V
}

var (
	// ErrDuplicateID is returned when a build input contains the same
	// identifier more than once.
	ErrDuplicateID = errors.New("duplicate identifier")
	// ErrEmptyBuild is returned when a build input contains no records.
	ErrEmptyBuild = errors.New("empty build input")
)

// ErrDimensionMismatch is returned when a build input mixes positions of
// different dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
