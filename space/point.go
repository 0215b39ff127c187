package space

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position expressed in decoded coordinates, either within a
// reference space or in the Universe frame.
type Point []float64

// Dims returns the number of dimensions of the point.
func (p Point) Dims() int { return len(p) }

// Add returns p + q.
func (p Point) Add(q Point) Point {
	v := make(Point, len(p))
	for i := range p {
		v[i] = p[i] + q[i]
	}
	return v
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	v := make(Point, len(p))
	for i := range p {
		v[i] = p[i] - q[i]
	}
	return v
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	v := make(Point, len(p))
	for i := range p {
		v[i] = p[i] * f
	}
	return v
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	var d float64
	for i := range p {
		d += p[i] * q[i]
	}
	return d
}

// Norm returns the Euclidean norm ||p||.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// Unit returns the normalized vector p / ||p||.
func (p Point) Unit() Point {
	return p.Scale(1 / p.Norm())
}

// Equal reports whether p and q have the same dimensionality and coordinates.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of p.
func (p Point) Clone() Point {
	v := make(Point, len(p))
	copy(v, p)
	return v
}

// HasNaN reports whether any coordinate is NaN.
func (p Point) HasNaN() bool {
	for _, c := range p {
		if math.IsNaN(c) {
			return true
		}
	}
	return false
}

func (p Point) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, c := range p {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", c)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Grid is a position expressed as encoded, per-axis step counts within one
// reference space. Grid coordinates are what the spatial index stores and
// what the space-filling curve operates on.
type Grid []uint64

// Dims returns the number of dimensions of the grid position.
func (g Grid) Dims() int { return len(g) }

// Shift returns the grid position with every coordinate right-shifted by
// bits, reducing its precision.
func (g Grid) Shift(bits uint32) Grid {
	v := make(Grid, len(g))
	for i := range g {
		v[i] = g[i] >> bits
	}
	return v
}

// Equal reports whether g and h are identical.
func (g Grid) Equal(h Grid) bool {
	if len(g) != len(h) {
		return false
	}
	for i := range g {
		if g[i] != h[i] {
			return false
		}
	}
	return true
}

// Within reports whether lo <= g <= hi on every axis.
func (g Grid) Within(lo, hi Grid) bool {
	for i := range g {
		if g[i] < lo[i] || g[i] > hi[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of g.
func (g Grid) Clone() Grid {
	v := make(Grid, len(g))
	copy(v, g)
	return v
}
