// Package spacedb composes the space-filling-curve brick into a per-space
// store with multiple index resolutions.
//
// Coarser resolutions are built by shifting precision bits off the grid
// coordinates and deduplicating the collapsed entries. Queries covering a
// large volume can then run against a much smaller index, trading positional
// precision for candidate count. Each resolution carries a volume threshold;
// the store picks the finest resolution whose threshold accommodates the
// query volume.
package spacedb

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/hupe1980/spatialgo/index/sfc"
	"github.com/hupe1980/spatialgo/space"
)

// maxScaleShift bounds how many precision bits can be removed.
const maxScaleShift = 31

// Entry is one indexed object: an encoded position and the offset of its
// properties in the dataset's property table.
type Entry struct {
	Pos   space.Grid
	Value uint32
}

// Resolution is one index level of the store.
type Resolution struct {
	// Threshold is the largest query volume this resolution is meant to
	// serve. Resolutions are kept sorted by threshold, finest first.
	Threshold float64
	// Scale is the number of precision bits removed per axis.
	Scale []uint32
	// Index holds the entries at this resolution.
	Index *sfc.Index
}

// Shift reduces a full-precision grid position to this resolution.
func (r *Resolution) Shift(g space.Grid) space.Grid {
	if len(r.Scale) == 0 || r.Scale[0] == 0 {
		return g
	}
	return g.Shift(r.Scale[0])
}

// Unshift widens a position of this resolution back to full-precision grid
// scale. The low bits lost to the scale are zero: the position names the
// origin of its coarse cell.
func (r *Resolution) Unshift(g space.Grid) space.Grid {
	if len(r.Scale) == 0 || r.Scale[0] == 0 {
		return g
	}
	v := make(space.Grid, len(g))
	for i := range g {
		v[i] = g[i] << r.Scale[0]
	}
	return v
}

// DB is the immutable multi-resolution spatial store of one reference space.
type DB struct {
	space       string
	resolutions []Resolution
}

// Options configures a store build.
type Options struct {
	// CurveBits is the per-axis curve precision. 0 selects a default
	// derived from the dimensionality.
	CurveBits int
	// Scales lists explicit resolutions to build, as per-axis precision
	// shifts. Scale factors must be uniform across axes.
	Scales [][]uint32
	// MaxElements, when no explicit scales are given, generates coarser
	// resolutions until one holds at most this many entries.
	MaxElements int
	// SpaceVolume is the total volume of the reference space, used to
	// derive resolution thresholds.
	SpaceVolume float64
	// MaxSteps is the largest axis step count of the space, used to size
	// the curve cell bucketing.
	MaxSteps uint64
}

func defaultCurveBits(dims int) int {
	b := 64 / dims
	if b > 16 {
		b = 16
	}
	return b
}

// Build constructs the store for one reference space from its full entry
// set. All entries must have dims dimensions.
func Build(spaceName string, entries []Entry, dims int, opts Options) (*DB, error) {
	if dims < 1 {
		return nil, fmt.Errorf("space %q: need at least one dimension", spaceName)
	}
	bits := opts.CurveBits
	if bits <= 0 {
		bits = defaultCurveBits(dims)
	}

	type level struct {
		idx   *sfc.Index
		scale uint32
		rank  uint32
	}
	var levels []level

	build := func(es []Entry, scale uint32) (*sfc.Index, error) {
		cfg := sfc.Config{
			Dims:  dims,
			Bits:  bits,
			Shift: sfc.ShiftFor(opts.MaxSteps>>scale, bits),
		}
		return sfc.Build(cfg, es,
			func(e Entry) space.Grid { return e.Pos },
			func(e Entry) uint32 { return e.Value },
		)
	}

	switch {
	case len(opts.Scales) > 0:
		scales, err := uniformScales(opts.Scales, dims)
		if err != nil {
			return nil, fmt.Errorf("space %q: %w", spaceName, err)
		}
		var rank uint32
		prev := uint32(0)
		for _, s := range scales {
			entries = reduce(entries, s-prev)
			prev = s
			idx, err := build(entries, s)
			if err != nil {
				return nil, fmt.Errorf("space %q: %w", spaceName, err)
			}
			levels = append(levels, level{idx: idx, scale: s, rank: min32(rank, maxScaleShift)})
			rank++
		}

	case opts.MaxElements > 0:
		idx, err := build(entries, 0)
		if err != nil {
			return nil, fmt.Errorf("space %q: %w", spaceName, err)
		}
		levels = append(levels, level{idx: idx, scale: 0, rank: 0})

		// Each coarser level should hold at most half the entries of the
		// previous one, otherwise storing it is a waste.
		target := len(entries) / 2
		for s := uint32(1); len(entries) > opts.MaxElements && s <= maxScaleShift; s++ {
			entries = reduce(entries, 1)
			if len(entries) > target {
				continue
			}
			target = len(entries) / 2
			idx, err := build(entries, s)
			if err != nil {
				return nil, fmt.Errorf("space %q: %w", spaceName, err)
			}
			levels = append(levels, level{idx: idx, scale: s, rank: s})
		}

	default:
		idx, err := build(entries, 0)
		if err != nil {
			return nil, fmt.Errorf("space %q: %w", spaceName, err)
		}
		levels = append(levels, level{idx: idx, scale: 0, rank: 0})
	}

	maxRank := levels[len(levels)-1].rank
	resolutions := make([]Resolution, len(levels))
	for i, l := range levels {
		scale := make([]uint32, dims)
		for d := range scale {
			scale[d] = l.scale
		}
		resolutions[i] = Resolution{
			// The finer the resolution, the smaller the query volume it
			// is meant to serve.
			Threshold: opts.SpaceVolume / float64(uint64(1)<<(maxRank-l.rank)),
			Scale:     scale,
			Index:     l.idx,
		}
	}

	return &DB{space: spaceName, resolutions: resolutions}, nil
}

// FromParts reassembles a store from its deserialized resolutions, which
// must be sorted by threshold, finest first.
func FromParts(spaceName string, resolutions []Resolution) *DB {
	return &DB{space: spaceName, resolutions: resolutions}
}

// Space returns the reference space name this store indexes.
func (d *DB) Space() string { return d.space }

// Resolutions returns the resolution levels, finest first. Read-only.
func (d *DB) Resolutions() []Resolution { return d.resolutions }

// Select picks the resolution to serve a query. An explicit scale wins over
// a threshold volume; with neither, the coarsest resolution is used.
func (d *DB) Select(thresholdVolume float64, scale []uint32) *Resolution {
	if scale != nil {
		for i := range d.resolutions {
			if scaleLessEq(scale, d.resolutions[i].Scale) {
				return &d.resolutions[i]
			}
		}
		return &d.resolutions[len(d.resolutions)-1]
	}
	if thresholdVolume > 0 {
		for i := range d.resolutions {
			if thresholdVolume <= d.resolutions[i].Threshold {
				return &d.resolutions[i]
			}
		}
	}
	return &d.resolutions[len(d.resolutions)-1]
}

// reduce shifts precision bits off every entry and collapses duplicates.
func reduce(entries []Entry, shift uint32) []Entry {
	if shift == 0 {
		return entries
	}
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0:0]
	var key []byte
	for _, e := range entries {
		pos := e.Pos.Shift(shift)
		key = key[:0]
		for _, c := range pos {
			key = binary.LittleEndian.AppendUint64(key, c)
		}
		key = binary.LittleEndian.AppendUint32(key, e.Value)
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		out = append(out, Entry{Pos: pos, Value: e.Value})
	}
	return out
}

func uniformScales(scales [][]uint32, dims int) ([]uint32, error) {
	out := make([]uint32, 0, len(scales))
	for _, s := range scales {
		if len(s) != dims {
			return nil, fmt.Errorf("scale %v has %d factors, want %d", s, len(s), dims)
		}
		for _, f := range s[1:] {
			if f != s[0] {
				return nil, fmt.Errorf("non-uniform scale factors %v are not supported", s)
			}
		}
		out = append(out, s[0])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func scaleLessEq(a, b []uint32) bool {
	for i := range a {
		if i >= len(b) || a[i] > b[i] {
			return false
		}
	}
	return true
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
