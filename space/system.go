package space

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoAxes is returned when an encoded-coordinate operation is attempted on
// a coordinate system without graduated axes (the Universe frame).
var ErrNoAxes = errors.New("coordinate system has no graduated axes")

// CoordinateSystem is an affine base: a translation vector in Universe
// coordinates plus one graduated axis per dimension. A system without axes
// is an absolute frame (the Universe), where positions pass through
// unchanged apart from the origin translation.
type CoordinateSystem struct {
	// Origin is the translation vector of the base, in Universe coordinates.
	Origin Point `json:"origin"`
	// Axes is the definition of the base, one axis per dimension.
	// Empty for the Universe frame.
	Axes []Axis `json:"axes,omitempty"`
}

// NewCoordinateSystem creates an affine coordinate system.
func NewCoordinateSystem(origin Point, axes ...Axis) CoordinateSystem {
	return CoordinateSystem{Origin: origin, Axes: axes}
}

// Dims returns the number of dimensions of positions within this base.
func (cs CoordinateSystem) Dims() int {
	if len(cs.Axes) == 0 {
		return len(cs.Origin)
	}
	return len(cs.Axes)
}

// BoundingBox returns the smallest box containing the whole base, in decoded
// in-space coordinates.
func (cs CoordinateSystem) BoundingBox() (lo, hi Point) {
	lo = make(Point, cs.Dims())
	hi = make(Point, cs.Dims())
	if len(cs.Axes) == 0 {
		for i := range lo {
			lo[i] = -math.MaxFloat64
			hi[i] = math.MaxFloat64
		}
		return lo, hi
	}
	for i, a := range cs.Axes {
		lo[i] = a.Graduation.Min
		hi[i] = a.Graduation.Max
	}
	return lo, hi
}

// Volume returns the volume of the base.
// Axes are assumed orthogonal.
func (cs CoordinateSystem) Volume() float64 {
	lo, hi := cs.BoundingBox()
	v := 1.0
	for i := range lo {
		v *= hi[i] - lo[i]
	}
	return v
}

// Absolute converts a decoded in-space position to Universe coordinates.
func (cs CoordinateSystem) Absolute(p Point) (Point, error) {
	if len(cs.Axes) == 0 {
		if len(p) != len(cs.Origin) {
			return nil, fmt.Errorf("position has %d dimensions, universe frame has %d", len(p), len(cs.Origin))
		}
		return cs.Origin.Add(p), nil
	}
	if len(p) != len(cs.Axes) {
		return nil, fmt.Errorf("position has %d dimensions, base has %d axes", len(p), len(cs.Axes))
	}
	abs := cs.Origin.Clone()
	for i, a := range cs.Axes {
		abs = abs.Add(a.ProjectOut(p[i]))
	}
	return abs, nil
}

// FromAbsolute converts a Universe-frame position into decoded in-space
// coordinates, clipping to the axis graduations.
func (cs CoordinateSystem) FromAbsolute(u Point) (Point, error) {
	if len(cs.Axes) == 0 {
		if len(u) != len(cs.Origin) {
			return nil, fmt.Errorf("position has %d dimensions, universe frame has %d", len(u), len(cs.Origin))
		}
		return u.Sub(cs.Origin), nil
	}
	translated := u.Sub(cs.Origin)
	p := make(Point, len(cs.Axes))
	for i, a := range cs.Axes {
		p[i] = a.ProjectIn(translated)
	}
	return p, nil
}

// Encode converts a decoded in-space position into encoded grid coordinates.
func (cs CoordinateSystem) Encode(p Point) (Grid, error) {
	if len(cs.Axes) == 0 {
		return nil, ErrNoAxes
	}
	if len(p) != len(cs.Axes) {
		return nil, fmt.Errorf("position has %d dimensions, base has %d axes", len(p), len(cs.Axes))
	}
	g := make(Grid, len(cs.Axes))
	for i, a := range cs.Axes {
		step, err := a.Encode(p[i])
		if err != nil {
			return nil, err
		}
		g[i] = step
	}
	return g, nil
}

// Decode converts encoded grid coordinates back into a decoded in-space
// position.
func (cs CoordinateSystem) Decode(g Grid) (Point, error) {
	if len(cs.Axes) == 0 {
		return nil, ErrNoAxes
	}
	if len(g) != len(cs.Axes) {
		return nil, fmt.Errorf("position has %d dimensions, base has %d axes", len(g), len(cs.Axes))
	}
	p := make(Point, len(cs.Axes))
	for i, a := range cs.Axes {
		v, err := a.Decode(g[i])
		if err != nil {
			return nil, err
		}
		p[i] = v
	}
	return p, nil
}

// MaxSteps returns the largest step count over all axes. It determines how
// many bits a grid coordinate of this base may need.
func (cs CoordinateSystem) MaxSteps() uint64 {
	var max uint64
	for _, a := range cs.Axes {
		if a.Graduation.Steps > max {
			max = a.Graduation.Steps
		}
	}
	return max
}
