package space

import (
	"errors"
	"fmt"
)

// NumberSet identifies the mathematical set of numbers allowed on an axis.
type NumberSet string

const (
	// SetN is the natural numbers, including 0.
	SetN NumberSet = "N"
	// SetZ is the integers.
	SetZ NumberSet = "Z"
	// SetQ is the rational numbers.
	SetQ NumberSet = "Q"
	// SetR is the real numbers.
	SetR NumberSet = "R"
)

// Unit factors for the supported SI length units. The list is deliberately
// partial to prevent confusions such as Mm vs mm.
var unitFactors = map[string]float64{
	"m":  1,
	"dm": 1e-1,
	"cm": 1e-2,
	"mm": 1e-3,
	"um": 1e-6,
	"nm": 1e-9,
	"pm": 1e-12,
}

// ErrUnknownUnit is returned when an axis names an unsupported SI unit.
var ErrUnknownUnit = errors.New("unknown measurement unit")

// Graduation defines the valid, fixed-precision value range of an axis.
type Graduation struct {
	// Set is the set of numbers allowed on the axis.
	Set NumberSet `json:"set"`
	// Min is the minimum value, inclusive.
	Min float64 `json:"minimum"`
	// Max is the maximum value, inclusive.
	Max float64 `json:"maximum"`
	// Steps is the number of discrete ticks between Min and Max.
	Steps uint64 `json:"steps"`
	// Epsilon is the length between two consecutive ticks.
	Epsilon float64 `json:"epsilon"`
}

// Axis defines one axis of a coordinate system: its unit, its graduation and
// its direction in the Universe frame.
type Axis struct {
	// Unit is the SI length unit of the value 1.0 on this axis
	// (one of m, dm, cm, mm, um, nm, pm).
	Unit string `json:"measurement_unit"`
	// Graduation is the valid value range on this axis.
	Graduation Graduation `json:"graduation"`
	// UnitVector is the direction of the axis, expressed in Universe
	// coordinates and normalized to length 1.
	UnitVector Point `json:"unit_vector"`
}

// NewAxis creates an axis definition. The unit vector is normalized, and the
// graduation epsilon is derived from the range and step count.
func NewAxis(unit string, unitVector Point, set NumberSet, min, max float64, steps uint64) (Axis, error) {
	if _, ok := unitFactors[unit]; !ok {
		return Axis{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	if steps == 0 {
		return Axis{}, fmt.Errorf("axis needs at least one step")
	}
	if max <= min {
		return Axis{}, fmt.Errorf("axis range is empty: [%g, %g]", min, max)
	}

	return Axis{
		Unit: unit,
		Graduation: Graduation{
			Set:     set,
			Min:     min,
			Max:     max,
			Steps:   steps,
			Epsilon: (max - min) / float64(steps),
		},
		UnitVector: unitVector.Unit(),
	}, nil
}

// UnitFactor returns the scaling factor of the axis unit relative to meters.
func (a Axis) UnitFactor() float64 { return unitFactors[a.Unit] }

// Encode converts a decoded value on this axis into a step count.
// Values outside the graduation range are an error.
func (a Axis) Encode(v float64) (uint64, error) {
	g := a.Graduation
	if v > g.Max {
		return 0, fmt.Errorf("encode: value out of bounds: %g > %g", v, g.Max)
	}
	if v < g.Min {
		return 0, fmt.Errorf("encode: value out of bounds: %g < %g", v, g.Min)
	}
	return uint64((v - g.Min) / g.Epsilon), nil
}

// Decode converts a step count on this axis back into a value.
func (a Axis) Decode(step uint64) (float64, error) {
	g := a.Graduation
	v := float64(step)*g.Epsilon + g.Min
	if v > g.Max {
		return 0, fmt.Errorf("decode: value out of bounds: %g > %g", v, g.Max)
	}
	return v, nil
}

// ProjectIn projects a Universe-frame vector onto this axis and returns the
// decoded axis value. The vector must already be translated so that its
// origin is the axis origin. Out-of-range projections are clipped to the
// graduation bounds.
func (a Axis) ProjectIn(v Point) float64 {
	d := v.Dot(a.UnitVector) / a.UnitFactor()
	if d > a.Graduation.Max {
		d = a.Graduation.Max
	}
	if d < a.Graduation.Min {
		d = a.Graduation.Min
	}
	return d
}

// ProjectOut converts a decoded axis value into a Universe-frame vector from
// the axis origin.
func (a Axis) ProjectOut(v float64) Point {
	return a.UnitVector.Scale(v * a.UnitFactor())
}
