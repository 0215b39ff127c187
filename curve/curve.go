// Package curve implements the space-filling curve used by the spatial
// index: a Morton (Z-order) curve over fixed-precision grid cells.
//
// The curve maps a multi-dimensional grid cell to a single uint64 ordinal by
// interleaving the bits of its coordinates. The code is monotonic per axis,
// and every aligned power-of-two cell of the grid covers one contiguous code
// interval, which makes volumetric queries decomposable into a small set of
// binary-searchable ranges (see Ranges).
//
// Curve proximity is necessary but not sufficient for spatial proximity:
// callers must filter candidates with an exact geometric test.
package curve

import (
	"fmt"

	"github.com/hupe1980/spatialgo/space"
)

// Curve encodes positions of a fixed dimensionality and per-axis bit width.
type Curve struct {
	dims int
	bits int
	mask uint64
}

// New creates a curve over dims axes with bits of precision per axis.
// dims*bits must fit the 64-bit code space.
func New(dims, bits int) (*Curve, error) {
	if dims < 1 {
		return nil, fmt.Errorf("curve needs at least one dimension, got %d", dims)
	}
	if bits < 1 || dims*bits > 64 {
		return nil, fmt.Errorf("curve with %d dimensions supports 1..%d bits per axis, got %d", dims, 64/dims, bits)
	}
	return &Curve{
		dims: dims,
		bits: bits,
		mask: (uint64(1) << uint(bits)) - 1,
	}, nil
}

// Dims returns the number of axes.
func (c *Curve) Dims() int { return c.dims }

// Bits returns the per-axis precision in bits.
func (c *Curve) Bits() int { return c.bits }

// MaxCoord returns the largest representable coordinate per axis.
func (c *Curve) MaxCoord() uint64 { return c.mask }

// Encode interleaves the grid coordinates into a single curve code.
// Coordinates are truncated to the curve precision.
func (c *Curve) Encode(g space.Grid) uint64 {
	var code uint64
	for axis := 0; axis < c.dims; axis++ {
		v := g[axis] & c.mask
		for b := 0; b < c.bits; b++ {
			code |= ((v >> uint(b)) & 1) << uint(b*c.dims+axis)
		}
	}
	return code
}

// Decode recovers the grid cell of a curve code.
func (c *Curve) Decode(code uint64) space.Grid {
	g := make(space.Grid, c.dims)
	for axis := 0; axis < c.dims; axis++ {
		var v uint64
		for b := 0; b < c.bits; b++ {
			v |= ((code >> uint(b*c.dims+axis)) & 1) << uint(b)
		}
		g[axis] = v
	}
	return g
}
