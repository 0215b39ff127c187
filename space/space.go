// Package space defines reference spaces: named affine coordinate systems
// over graduated axes, the positions and shapes expressed within them, and
// the conversions between spaces through the shared Universe frame.
package space

import "fmt"

// UniverseName is the reserved name of the absolute reference frame.
const UniverseName = "universe"

// universeDims is the dimensionality of the Universe frame. All reference
// spaces are anchored in it, so it must be at least as large as the highest
// dimensional space in use.
const universeDims = 3

var universe = &Space{
	Name: UniverseName,
	System: CoordinateSystem{
		Origin: make(Point, universeDims),
	},
}

// Space is a named reference space.
type Space struct {
	// Name identifies the reference space.
	Name string `json:"name"`
	// System is the coordinate system definition of the space.
	System CoordinateSystem `json:"system"`
}

// New creates a reference space.
func New(name string, system CoordinateSystem) Space {
	return Space{Name: name, System: system}
}

// Universe returns the absolute reference frame. It contains all spaces and
// is the interchange frame for conversions between them.
func Universe() *Space { return universe }

// IsUniverse reports whether s is the absolute frame.
func (s *Space) IsUniverse() bool { return s.Name == UniverseName }

// Dims returns the dimensionality of positions in this space.
func (s *Space) Dims() int { return s.System.Dims() }

// BoundingBox returns the box enclosing the whole space, in decoded
// coordinates.
func (s *Space) BoundingBox() (lo, hi Point) { return s.System.BoundingBox() }

// Volume returns the total volume of the space.
func (s *Space) Volume() float64 { return s.System.Volume() }

// Encode converts a decoded in-space position into grid coordinates.
func (s *Space) Encode(p Point) (Grid, error) { return s.System.Encode(p) }

// Decode converts grid coordinates back into a decoded position.
func (s *Space) Decode(g Grid) (Point, error) { return s.System.Decode(g) }

// Absolute converts a decoded in-space position into the Universe frame.
func (s *Space) Absolute(p Point) (Point, error) { return s.System.Absolute(p) }

// FromAbsolute converts a Universe-frame position into this space.
func (s *Space) FromAbsolute(u Point) (Point, error) { return s.System.FromAbsolute(u) }

// Equal reports whether two space definitions are identical.
func (s *Space) Equal(o *Space) bool {
	if s.Name != o.Name || !s.System.Origin.Equal(o.System.Origin) {
		return false
	}
	if len(s.System.Axes) != len(o.System.Axes) {
		return false
	}
	for i, a := range s.System.Axes {
		b := o.System.Axes[i]
		if a.Unit != b.Unit || a.Graduation != b.Graduation || !a.UnitVector.Equal(b.UnitVector) {
			return false
		}
	}
	return true
}

// ChangeBase transforms a decoded position in space from into a decoded
// position in space to, going through the Universe frame.
func ChangeBase(p Point, from, to *Space) (Point, error) {
	u, err := from.Absolute(p)
	if err != nil {
		return nil, fmt.Errorf("change base %q -> %q: %w", from.Name, to.Name, err)
	}
	q, err := to.FromAbsolute(u)
	if err != nil {
		return nil, fmt.Errorf("change base %q -> %q: %w", from.Name, to.Name, err)
	}
	return q, nil
}
