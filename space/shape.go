package space

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedShape is returned for query volumes that cannot be evaluated,
// such as NaN coordinates or inverted bounding-box bounds.
var ErrMalformedShape = errors.New("malformed shape")

// ShapeKind enumerates the supported shape families.
type ShapeKind uint8

const (
	// KindPoint is a singular position.
	KindPoint ShapeKind = iota + 1
	// KindBoundingBox is a hyperrectangle whose faces have an axis as
	// normal.
	KindBoundingBox
	// KindHyperSphere is a sphere around a center position.
	KindHyperSphere
)

func (k ShapeKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindBoundingBox:
		return "bounding-box"
	case KindHyperSphere:
		return "hyper-sphere"
	default:
		return fmt.Sprintf("shape(%d)", uint8(k))
	}
}

// Shape describes a query volume in decoded coordinates of some reference
// space.
type Shape struct {
	Kind ShapeKind `json:"kind"`
	// A is the position for a point, the lower corner for a bounding box,
	// or the center for a sphere.
	A Point `json:"a"`
	// B is the upper corner for a bounding box, unused otherwise.
	B Point `json:"b,omitempty"`
	// Radius is the sphere radius, unused otherwise.
	Radius float64 `json:"radius,omitempty"`
}

// PointShape creates a shape for a singular position.
func PointShape(p Point) Shape { return Shape{Kind: KindPoint, A: p} }

// BoundingBox creates an axis-aligned box shape.
func BoundingBox(lo, hi Point) Shape { return Shape{Kind: KindBoundingBox, A: lo, B: hi} }

// HyperSphere creates a sphere shape.
func HyperSphere(center Point, radius float64) Shape {
	return Shape{Kind: KindHyperSphere, A: center, Radius: radius}
}

// Dims returns the dimensionality of the shape.
func (s Shape) Dims() int { return len(s.A) }

// Empty reports whether the shape describes no volume at all. Empty shapes
// yield empty query results rather than errors.
func (s Shape) Empty() bool { return len(s.A) == 0 }

// Validate checks that the shape can be evaluated. NaN coordinates, inverted
// bounding-box bounds and negative radii are malformed.
func (s Shape) Validate() error {
	if s.A.HasNaN() || s.B.HasNaN() || math.IsNaN(s.Radius) {
		return fmt.Errorf("%w: NaN coordinate", ErrMalformedShape)
	}
	switch s.Kind {
	case KindPoint:
	case KindBoundingBox:
		if len(s.A) != len(s.B) {
			return fmt.Errorf("%w: corner dimensions differ: %d vs %d", ErrMalformedShape, len(s.A), len(s.B))
		}
		for i := range s.A {
			if s.A[i] > s.B[i] {
				return fmt.Errorf("%w: inverted bounds on axis %d: %g > %g", ErrMalformedShape, i, s.A[i], s.B[i])
			}
		}
	case KindHyperSphere:
		if s.Radius < 0 {
			return fmt.Errorf("%w: negative radius %g", ErrMalformedShape, s.Radius)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedShape, s.Kind)
	}
	return nil
}

// MBB returns the minimum bounding box of the shape.
func (s Shape) MBB() (lo, hi Point) {
	switch s.Kind {
	case KindHyperSphere:
		r := make(Point, len(s.A))
		for i := range r {
			r[i] = s.Radius
		}
		return s.A.Sub(r), s.A.Add(r)
	case KindBoundingBox:
		return s.A, s.B
	default:
		return s.A, s.A
	}
}

// Contains reports whether the shape overlaps the given position.
func (s Shape) Contains(p Point) bool {
	switch s.Kind {
	case KindPoint:
		return s.A.Equal(p)
	case KindBoundingBox:
		for i := range p {
			if p[i] < s.A[i] || p[i] > s.B[i] {
				return false
			}
		}
		return true
	case KindHyperSphere:
		return p.Sub(s.A).Norm() <= s.Radius
	default:
		return false
	}
}

// Volume computes the volume of the shape. Points have the smallest non-zero
// volume representable, so that resolution selection by volume still works.
func (s Shape) Volume() float64 {
	switch s.Kind {
	case KindPoint:
		return math.SmallestNonzeroFloat64
	case KindBoundingBox:
		v := 1.0
		for i := range s.A {
			v *= math.Abs(s.B[i] - s.A[i])
		}
		return v
	case KindHyperSphere:
		// Recurrence for the volume of a k-ball:
		// V_k = V_{k-2} * 2*pi/k, with V_1 = 2r, V_2 = pi*r^2.
		k := len(s.A)
		a := 2.0
		i := 1
		if k%2 == 0 {
			a = math.Pi
			i = 2
		}
		for i < k {
			i += 2
			a *= 2 * math.Pi / float64(i)
		}
		return a * math.Pow(s.Radius, float64(i))
	default:
		return 0
	}
}

// Rebase converts the shape from one reference space into another. For
// spheres, the radius is re-measured in the target space by rebasing a point
// one radius away from the center along the first axis.
func (s Shape) Rebase(from, to *Space) (Shape, error) {
	switch s.Kind {
	case KindPoint:
		p, err := ChangeBase(s.A, from, to)
		if err != nil {
			return Shape{}, err
		}
		return PointShape(p), nil
	case KindBoundingBox:
		lo, err := ChangeBase(s.A, from, to)
		if err != nil {
			return Shape{}, err
		}
		hi, err := ChangeBase(s.B, from, to)
		if err != nil {
			return Shape{}, err
		}
		// Clipping may flip bounds on mirrored axes.
		for i := range lo {
			if lo[i] > hi[i] {
				lo[i], hi[i] = hi[i], lo[i]
			}
		}
		return BoundingBox(lo, hi), nil
	case KindHyperSphere:
		c, err := ChangeBase(s.A, from, to)
		if err != nil {
			return Shape{}, err
		}
		edge := s.A.Clone()
		edge[0] += s.Radius
		e, err := ChangeBase(edge, from, to)
		if err != nil {
			return Shape{}, err
		}
		return HyperSphere(c, e.Sub(c).Norm()), nil
	default:
		return Shape{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedShape, s.Kind)
	}
}
