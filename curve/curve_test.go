package curve

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/space"
)

func TestNew(t *testing.T) {
	_, err := New(0, 8)
	require.Error(t, err)

	_, err = New(3, 22)
	require.Error(t, err)

	c, err := New(3, 21)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Dims())
	assert.Equal(t, 21, c.Bits())
	assert.Equal(t, uint64(1<<21-1), c.MaxCoord())
}

func TestEncodeDecode(t *testing.T) {
	t.Run("Known2D", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)

		// Bit interleaving of (x, y): y bits occupy the odd positions.
		assert.Equal(t, uint64(0), c.Encode(space.Grid{0, 0}))
		assert.Equal(t, uint64(1), c.Encode(space.Grid{1, 0}))
		assert.Equal(t, uint64(2), c.Encode(space.Grid{0, 1}))
		assert.Equal(t, uint64(3), c.Encode(space.Grid{1, 1}))
		assert.Equal(t, uint64(0b1100), c.Encode(space.Grid{2, 2}))
	})

	t.Run("Roundtrip", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for _, dims := range []int{1, 2, 3, 4} {
			c, err := New(dims, 64/dims)
			require.NoError(t, err)

			for i := 0; i < 200; i++ {
				g := make(space.Grid, dims)
				for d := range g {
					g[d] = rng.Uint64() & c.MaxCoord()
				}
				assert.Equal(t, g, c.Decode(c.Encode(g)))
			}
		}
	})

	t.Run("TruncatesToPrecision", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)
		assert.Equal(t, c.Encode(space.Grid{3, 3}), c.Encode(space.Grid{3 + 16, 3}))
	})

	t.Run("MonotonicPerAxis", func(t *testing.T) {
		c, err := New(2, 8)
		require.NoError(t, err)
		prev := c.Encode(space.Grid{0, 7})
		for x := uint64(1); x <= c.MaxCoord(); x++ {
			code := c.Encode(space.Grid{x, 7})
			assert.Greater(t, code, prev)
			prev = code
		}
	})
}

func TestRanges(t *testing.T) {
	t.Run("CoversBox", func(t *testing.T) {
		c, err := New(2, 6)
		require.NoError(t, err)

		lo := space.Grid{3, 5}
		hi := space.Grid{17, 12}
		ranges := c.Ranges(lo, hi, 0)
		require.NotEmpty(t, ranges)

		// Sorted and non-overlapping.
		sorted := sort.SliceIsSorted(ranges, func(i, j int) bool { return ranges[i].Lo < ranges[j].Lo })
		assert.True(t, sorted)
		for i := 1; i < len(ranges); i++ {
			assert.Greater(t, ranges[i].Lo, ranges[i-1].Hi)
		}

		// Every cell of the box is covered.
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				code := c.Encode(space.Grid{x, y})
				assert.True(t, covered(ranges, code), "cell (%d,%d) not covered", x, y)
			}
		}
	})

	t.Run("ExactWithoutBudget", func(t *testing.T) {
		c, err := New(2, 6)
		require.NoError(t, err)

		lo := space.Grid{4, 4}
		hi := space.Grid{11, 9}
		ranges := c.Ranges(lo, hi, 1 << 20)

		for _, r := range ranges {
			for code := r.Lo; code <= r.Hi; code++ {
				g := c.Decode(code)
				assert.True(t, g.Within(lo, hi), "code %d decodes outside the box: %v", code, g)
			}
		}
	})

	t.Run("RespectsBudget", func(t *testing.T) {
		c, err := New(3, 8)
		require.NoError(t, err)

		ranges := c.Ranges(space.Grid{1, 1, 1}, space.Grid{200, 150, 99}, 16)
		assert.LessOrEqual(t, len(ranges), 16)
	})

	t.Run("BudgetIsAHardCap", func(t *testing.T) {
		c, err := New(2, 8)
		require.NoError(t, err)

		// This box used to overshoot a budget of 15 by three ranges:
		// pending siblings each emitted a whole cell after the budget was
		// already spent.
		lo := space.Grid{27, 9}
		hi := space.Grid{83, 232}
		ranges := c.Ranges(lo, hi, 15)
		assert.LessOrEqual(t, len(ranges), 15)
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				code := c.Encode(space.Grid{x, y})
				if !covered(ranges, code) {
					t.Fatalf("cell (%d,%d) not covered", x, y)
				}
			}
		}

		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 200; trial++ {
			lo := space.Grid{uint64(rng.Intn(256)), uint64(rng.Intn(256))}
			hi := space.Grid{lo[0] + uint64(rng.Intn(int(256-lo[0]))), lo[1] + uint64(rng.Intn(int(256-lo[1])))}
			budget := 1 + rng.Intn(32)

			ranges := c.Ranges(lo, hi, budget)
			require.NotEmpty(t, ranges)
			assert.LessOrEqual(t, len(ranges), budget,
				"lo=%v hi=%v budget=%d", lo, hi, budget)

			sorted := sort.SliceIsSorted(ranges, func(i, j int) bool { return ranges[i].Lo < ranges[j].Lo })
			assert.True(t, sorted)

			// Spot-check coverage on the box corners.
			for _, g := range []space.Grid{lo, hi, {lo[0], hi[1]}, {hi[0], lo[1]}} {
				assert.True(t, covered(ranges, c.Encode(g)), "corner %v not covered", g)
			}
		}
	})

	t.Run("StraddlesDiscontinuity", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)

		// A box crossing the middle of the grid sits on the largest curve
		// discontinuity and must split, not produce one giant interval.
		ranges := c.Ranges(space.Grid{7, 7}, space.Grid{8, 8}, 0)
		require.NotEmpty(t, ranges)
		assert.Greater(t, len(ranges), 1)

		for _, g := range []space.Grid{{7, 7}, {8, 7}, {7, 8}, {8, 8}} {
			assert.True(t, covered(ranges, c.Encode(g)), "cell %v not covered", g)
		}
	})

	t.Run("SingleCell", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)

		code := c.Encode(space.Grid{9, 9})
		ranges := c.Ranges(space.Grid{9, 9}, space.Grid{9, 9}, 0)
		require.Len(t, ranges, 1)
		assert.Equal(t, Range{Lo: code, Hi: code}, ranges[0])
	})

	t.Run("ClipsToGrid", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)

		ranges := c.Ranges(space.Grid{14, 14}, space.Grid{100, 100}, 0)
		require.NotEmpty(t, ranges)
		for _, r := range ranges {
			assert.LessOrEqual(t, r.Hi, uint64(1<<8-1))
		}
	})

	t.Run("EmptyBox", func(t *testing.T) {
		c, err := New(2, 4)
		require.NoError(t, err)
		assert.Nil(t, c.Ranges(space.Grid{5, 5}, space.Grid{4, 5}, 0))
	})
}

func covered(ranges []Range, code uint64) bool {
	for _, r := range ranges {
		if code >= r.Lo && code <= r.Hi {
			return true
		}
	}
	return false
}
