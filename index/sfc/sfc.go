// Package sfc implements the volumetric index brick: a space-filling-curve
// index over encoded grid positions.
//
// Every position is bucketed into a curve cell and the (cell code, value)
// pairs are kept sorted by code, so a volumetric query becomes a handful of
// binary-searched range scans over the curve intervals covering the query
// box. Curve adjacency is only a candidate test: every candidate is verified
// against the exact query box using its full-precision position, so results
// contain no false positives. Positions mapping to the same cell are kept as
// a multiset.
package sfc

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/hupe1980/spatialgo/curve"
	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/space"
)

// Config fixes the geometry of an index.
type Config struct {
	// Dims is the dimensionality of every indexed position.
	Dims int
	// Bits is the per-axis curve precision.
	Bits int
	// Shift is the right shift bucketing full-precision grid coordinates
	// into curve cells. Build raises it as needed so that every observed
	// coordinate fits the curve precision.
	Shift uint32
}

// ShiftFor returns the smallest cell shift that fits coordinates up to
// maxCoord into a curve with the given per-axis bits.
func ShiftFor(maxCoord uint64, curveBits int) uint32 {
	need := bits.Len64(maxCoord)
	if need <= curveBits {
		return 0
	}
	return uint32(need - curveBits)
}

// Index is an immutable space-filling-curve index. It is safe for concurrent
// lookups. The backing slices may alias a read-only memory-mapped region.
type Index struct {
	cfg   Config
	curve *curve.Curve

	// codes holds the curve cell code of every entry, sorted ascending.
	// values and positions are kept in the same entry order.
	codes     []uint64
	values    []uint32
	positions []uint64 // n*dims full-precision coordinates
	// byValue is a permutation of entry indices sorted by (value, code),
	// backing reverse lookups from identifier to positions.
	byValue []uint32
}

var _ index.Spatial[uint32] = (*Index)(nil)

// Build constructs the index from a full record set. posOf extracts the
// encoded grid position of a record, idOf the value stored for it (typically
// an offset into a caller-owned identifier table).
//
// All extracted positions must have cfg.Dims dimensions; a mismatch aborts
// the build. An empty record set yields a valid, empty index.
func Build[R any](cfg Config, records []R, posOf index.PositionFunc[R], idOf index.ValueFunc[R, uint32]) (*Index, error) {
	n := len(records)

	var maxCoord uint64
	positions := make([]uint64, 0, n*cfg.Dims)
	values := make([]uint32, 0, n)
	for _, r := range records {
		g := posOf(r)
		if g.Dims() != cfg.Dims {
			return nil, &index.ErrDimensionMismatch{Expected: cfg.Dims, Actual: g.Dims()}
		}
		for _, c := range g {
			if c > maxCoord {
				maxCoord = c
			}
			positions = append(positions, c)
		}
		values = append(values, idOf(r))
	}

	if s := ShiftFor(maxCoord, cfg.Bits); s > cfg.Shift {
		cfg.Shift = s
	}

	x, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}

	codes := make([]uint64, n)
	cell := make(space.Grid, cfg.Dims)
	for i := 0; i < n; i++ {
		for d := 0; d < cfg.Dims; d++ {
			cell[d] = positions[i*cfg.Dims+d] >> cfg.Shift
		}
		codes[i] = x.curve.Encode(cell)
	}

	perm := make([]uint32, n)
	for i := range perm {
		perm[i] = uint32(i)
	}
	sort.Slice(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		if codes[i] != codes[j] {
			return codes[i] < codes[j]
		}
		return values[i] < values[j]
	})

	x.codes = make([]uint64, n)
	x.values = make([]uint32, n)
	x.positions = make([]uint64, n*cfg.Dims)
	for dst, src := range perm {
		x.codes[dst] = codes[src]
		x.values[dst] = values[src]
		copy(x.positions[dst*cfg.Dims:(dst+1)*cfg.Dims], positions[int(src)*cfg.Dims:int(src+1)*cfg.Dims])
	}

	x.byValue = make([]uint32, n)
	for i := range x.byValue {
		x.byValue[i] = uint32(i)
	}
	sort.Slice(x.byValue, func(a, b int) bool {
		i, j := x.byValue[a], x.byValue[b]
		if x.values[i] != x.values[j] {
			return x.values[i] < x.values[j]
		}
		return x.codes[i] < x.codes[j]
	})

	return x, nil
}

// FromParts reassembles an index from its serialized sections. The slices
// are used as-is and may alias a mapped region; they must follow the Build
// layout (codes sorted ascending, byValue sorted by value).
func FromParts(cfg Config, codes []uint64, values []uint32, positions []uint64, byValue []uint32) (*Index, error) {
	x, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	n := len(codes)
	if len(values) != n || len(byValue) != n {
		return nil, fmt.Errorf("inconsistent section lengths: %d codes, %d values, %d by-value entries", n, len(values), len(byValue))
	}
	if len(positions) != n*cfg.Dims {
		return nil, fmt.Errorf("position section holds %d coordinates, want %d", len(positions), n*cfg.Dims)
	}
	x.codes = codes
	x.values = values
	x.positions = positions
	x.byValue = byValue
	return x, nil
}

func newIndex(cfg Config) (*Index, error) {
	c, err := curve.New(cfg.Dims, cfg.Bits)
	if err != nil {
		return nil, err
	}
	return &Index{cfg: cfg, curve: c}, nil
}

// Len returns the number of indexed entries.
func (x *Index) Len() int { return len(x.codes) }

// Dims returns the dimensionality of indexed positions.
func (x *Index) Dims() int { return x.cfg.Dims }

// Config returns the index geometry, including the effective cell shift.
func (x *Index) Config() Config { return x.cfg }

// Codes returns the sorted cell code section. Read-only.
func (x *Index) Codes() []uint64 { return x.codes }

// Values returns the value section, in code order. Read-only.
func (x *Index) Values() []uint32 { return x.values }

// Positions returns the packed position section, in code order. Read-only.
func (x *Index) Positions() []uint64 { return x.positions }

// ByValue returns the value-sorted entry permutation. Read-only.
func (x *Index) ByValue() []uint32 { return x.byValue }

// Position returns the full-precision grid position of entry i. The returned
// slice aliases the index and must not be modified.
func (x *Index) Position(i int) space.Grid {
	return space.Grid(x.positions[i*x.cfg.Dims : (i+1)*x.cfg.Dims])
}

// Scan visits every entry whose position lies within [lo, hi], inclusive on
// every axis, in curve order. It stops early when yield returns false.
func (x *Index) Scan(lo, hi space.Grid, yield func(pos space.Grid, value uint32) bool) {
	if len(x.codes) == 0 {
		return
	}
	for i := range lo {
		if lo[i] > hi[i] {
			return
		}
	}

	cellLo := lo.Shift(x.cfg.Shift)
	cellHi := hi.Shift(x.cfg.Shift)

	for _, r := range x.curve.Ranges(cellLo, cellHi, curve.DefaultMaxRanges) {
		i := sort.Search(len(x.codes), func(i int) bool { return x.codes[i] >= r.Lo })
		for ; i < len(x.codes) && x.codes[i] <= r.Hi; i++ {
			pos := x.Position(i)
			if !pos.Within(lo, hi) {
				continue // curve cell overlaps the box, the position does not
			}
			if !yield(pos, x.values[i]) {
				return
			}
		}
	}
}

// Lookup returns the values stored exactly at pos. Ties are retained as a
// multiset.
func (x *Index) Lookup(pos space.Grid) []uint32 {
	var out []uint32
	x.Scan(pos, pos, func(_ space.Grid, v uint32) bool {
		out = append(out, v)
		return true
	})
	return out
}

// LookupRange returns the values of every entry within the box [lo, hi].
func (x *Index) LookupRange(lo, hi space.Grid) []uint32 {
	var out []uint32
	x.Scan(lo, hi, func(_ space.Grid, v uint32) bool {
		out = append(out, v)
		return true
	})
	return out
}

// LookupValue returns every position stored under value, in curve order.
func (x *Index) LookupValue(value uint32) []space.Grid {
	n := len(x.byValue)
	start := sort.Search(n, func(i int) bool { return x.values[x.byValue[i]] >= value })
	var out []space.Grid
	for i := start; i < n && x.values[x.byValue[i]] == value; i++ {
		out = append(out, x.Position(int(x.byValue[i])))
	}
	return out
}
