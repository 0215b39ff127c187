package curve

import "github.com/hupe1980/spatialgo/space"

// Range is an inclusive interval of curve codes.
type Range struct {
	Lo uint64
	Hi uint64
}

// DefaultMaxRanges bounds the number of intervals produced by Ranges. More
// intervals approximate the query volume more tightly; fewer intervals cost
// more false-positive candidates for the exact filter downstream.
const DefaultMaxRanges = 64

// Ranges decomposes the axis-aligned grid box [lo, hi] (inclusive on every
// axis) into a sorted, non-overlapping set of curve-code intervals covering
// it. The union of the intervals is always a superset of the box: when the
// maxRanges budget is exhausted, partially overlapping cells are emitted
// whole rather than subdivided. Boxes straddling curve discontinuities are
// split into multiple intervals, never missed.
//
// maxRanges <= 0 selects DefaultMaxRanges.
func (c *Curve) Ranges(lo, hi space.Grid, maxRanges int) []Range {
	if maxRanges <= 0 {
		maxRanges = DefaultMaxRanges
	}

	qlo := make(space.Grid, c.dims)
	qhi := make(space.Grid, c.dims)
	for i := 0; i < c.dims; i++ {
		qlo[i] = lo[i] & c.mask
		qhi[i] = hi[i]
		if qhi[i] > c.mask {
			qhi[i] = c.mask
		}
		if qlo[i] > qhi[i] {
			return nil
		}
	}

	// Cells still to visit, kept with the next cell along the curve on
	// top. Every pending cell emits at most one interval, so the budget
	// check below keeps len(out)+len(stack) within maxRanges at all
	// times: the cap is hard, not a heuristic.
	type cell struct {
		lo    space.Grid
		level int
	}
	stack := []cell{{lo: make(space.Grid, c.dims)}}
	var out []Range

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		side := uint64(1) << uint(c.bits-cur.level)

		inside := true
		for i := 0; i < c.dims; i++ {
			if cur.lo[i] < qlo[i] || cur.lo[i]+side-1 > qhi[i] {
				inside = false
				break
			}
		}

		if !inside && cur.level < c.bits {
			half := side >> 1
			var children []space.Grid
			for j := 0; j < 1<<uint(c.dims); j++ {
				child := make(space.Grid, c.dims)
				overlaps := true
				for i := 0; i < c.dims; i++ {
					child[i] = cur.lo[i]
					// Child bit b of axis i corresponds to code bit
					// (b*dims+i); index j enumerates children in
					// ascending code order.
					if j&(1<<uint(i)) != 0 {
						child[i] += half
					}
					if child[i]+half-1 < qlo[i] || child[i] > qhi[i] {
						overlaps = false
					}
				}
				if overlaps {
					children = append(children, child)
				}
			}
			if len(out)+len(stack)+len(children) <= maxRanges {
				// Push in reverse so the stack pops in Z-order and the
				// emitted ranges stay sorted.
				for j := len(children) - 1; j >= 0; j-- {
					stack = append(stack, cell{lo: children[j], level: cur.level + 1})
				}
				continue
			}
		}

		// A whole cell, a leaf cell, or a cell we cannot afford to split
		// any further covers one contiguous code interval.
		base := c.Encode(cur.lo)
		span := uint64(1) << uint((c.bits-cur.level)*c.dims)
		appendRange(&out, Range{Lo: base, Hi: base + span - 1})
	}
	return out
}

// appendRange merges intervals that happen to be adjacent on the curve.
func appendRange(out *[]Range, r Range) {
	if n := len(*out); n > 0 && (*out)[n-1].Hi+1 == r.Lo {
		(*out)[n-1].Hi = r.Hi
		return
	}
	*out = append(*out, r)
}
