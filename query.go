package spatialgo

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/spatialgo/persistence"
	"github.com/hupe1980/spatialgo/space"
)

// Filter restricts query results by object identity. IDs and Kinds each
// select a union of rows; a filter with both selects the union of the two.
// The zero Filter matches everything.
type Filter struct {
	IDs   []string
	Kinds []string
}

func (f Filter) empty() bool {
	return len(f.IDs) == 0 && len(f.Kinds) == 0
}

// bitmap resolves the filter against the property table. A nil bitmap means
// no filtering.
func (f Filter) bitmap(t *persistence.PropertyTable) (*roaring.Bitmap, error) {
	if f.empty() {
		return nil, nil
	}

	bm := roaring.New()
	for _, id := range f.IDs {
		if row, ok := t.Find(id); ok {
			bm.Add(row)
		}
	}

	if len(f.Kinds) > 0 {
		kinds := make(map[string]struct{}, len(f.Kinds))
		for _, k := range f.Kinds {
			kinds[k] = struct{}{}
		}
		for i := 0; i < t.Len(); i++ {
			_, kind, err := t.Row(uint32(i))
			if err != nil {
				return nil, err
			}
			if _, ok := kinds[kind]; ok {
				bm.Add(uint32(i))
			}
		}
	}

	return bm, nil
}

// QueryParams tunes how a query executes. The zero value applies no
// filtering and keeps results in their source space; shape queries then
// pick their resolution from the query volume and exact lookups use the
// finest one.
type QueryParams struct {
	// OutputSpace converts result positions into the named space.
	// Empty keeps each result in the space it was found in.
	OutputSpace string
	// ThresholdVolume selects the finest index resolution whose threshold
	// accommodates this query volume. Zero leaves the choice to the query.
	ThresholdVolume float64
	// Resolution selects an index resolution by explicit per-axis scale,
	// overriding ThresholdVolume.
	Resolution []uint32
	// ViewPort drops results outside this shape. The shape is expressed in
	// Universe coordinates so it can span spaces.
	ViewPort *space.Shape
	// Filter restricts results by object identity.
	Filter Filter
}

// Item is one query result.
type Item struct {
	// Space the position is expressed in.
	Space string
	// ID and Kind identify the object.
	ID   string
	Kind string
	// Position of the object.
	Position space.Point
}
