// Package storage implements the dataset import pipeline: JSON definitions
// of spaces and features are parsed into an intermediate binary batch, and a
// batch is indexed into a queryable dataset.
//
// Feature coordinates arrive as strings ("0.125" rather than 0.125) so that
// exports from other tools keep their full decimal precision through
// whatever JSON writer produced them.
package storage

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/model"
	"github.com/hupe1980/spatialgo/space"
)

// Record is one positioned object of a batch.
type Record struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind"`
	Space    string      `json:"space"`
	Position space.Point `json:"position"`
}

type spaceJSON struct {
	Name   string     `json:"name"`
	Origin []float64  `json:"origin"`
	Axes   []axisJSON `json:"axes"`
}

type axisJSON struct {
	MeasurementUnit string         `json:"measurement_unit"`
	UnitVector      []float64      `json:"unit_vector"`
	Graduation      graduationJSON `json:"graduation"`
}

type graduationJSON struct {
	Set     string  `json:"set"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	Steps   uint64  `json:"steps"`
}

type featureJSON struct {
	Properties propertiesJSON `json:"properties"`
	Shapes     []shapeJSON    `json:"shapes"`
}

type propertiesJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type shapeJSON struct {
	Type           string     `json:"type"`
	ReferenceSpace string     `json:"reference_space"`
	Vertices       [][]string `json:"vertices"`
}

// ParseSpaces decodes a JSON list of reference space definitions.
// A nil codec selects codec.Default.
func ParseSpaces(data []byte, c codec.Codec) ([]space.Space, error) {
	if c == nil {
		c = codec.Default
	}

	var defs []spaceJSON
	if err := c.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse spaces: %w", err)
	}

	spaces := make([]space.Space, 0, len(defs))
	for _, def := range defs {
		axes := make([]space.Axis, 0, len(def.Axes))
		for i, a := range def.Axes {
			axis, err := space.NewAxis(
				a.MeasurementUnit,
				space.Point(a.UnitVector),
				space.NumberSet(a.Graduation.Set),
				a.Graduation.Minimum,
				a.Graduation.Maximum,
				a.Graduation.Steps,
			)
			if err != nil {
				return nil, fmt.Errorf("parse space %q axis %d: %w", def.Name, i, err)
			}
			axes = append(axes, axis)
		}
		spaces = append(spaces, space.New(def.Name, space.NewCoordinateSystem(space.Point(def.Origin), axes...)))
	}
	return spaces, nil
}

// ParseFeatures decodes a JSON list of features into batch records, one per
// shape vertex. A nil codec selects codec.Default.
func ParseFeatures(data []byte, c codec.Codec) ([]Record, error) {
	if c == nil {
		c = codec.Default
	}

	var feats []featureJSON
	if err := c.Unmarshal(data, &feats); err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}

	var records []Record
	for _, f := range feats {
		kind := f.Properties.Type
		if kind == "" {
			kind = model.KindFeature
		}
		for _, sh := range f.Shapes {
			for _, vertex := range sh.Vertices {
				pos, err := parseVertex(vertex)
				if err != nil {
					return nil, fmt.Errorf("feature %q: %w", f.Properties.ID, err)
				}
				records = append(records, Record{
					ID:       f.Properties.ID,
					Kind:     kind,
					Space:    sh.ReferenceSpace,
					Position: pos,
				})
			}
		}
	}
	return records, nil
}

func parseVertex(vertex []string) (space.Point, error) {
	pos := make(space.Point, len(vertex))
	for i, s := range vertex {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", s, err)
		}
		pos[i] = v
	}
	return pos, nil
}
