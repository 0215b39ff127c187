package sfc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/space"
)

type entry struct {
	pos   space.Grid
	value uint32
}

func posOf(e entry) space.Grid { return e.pos }
func valOf(e entry) uint32     { return e.value }

func buildIndex(t *testing.T, cfg Config, entries []entry) *Index {
	t.Helper()
	x, err := Build(cfg, entries, posOf, valOf)
	require.NoError(t, err)
	return x
}

func TestShiftFor(t *testing.T) {
	assert.Equal(t, uint32(0), ShiftFor(255, 8))
	assert.Equal(t, uint32(1), ShiftFor(256, 8))
	assert.Equal(t, uint32(8), ShiftFor(1<<16-1, 8))
	assert.Equal(t, uint32(0), ShiftFor(0, 8))
}

func TestBuild(t *testing.T) {
	t.Run("RangeAndPointLookups", func(t *testing.T) {
		x := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{0, 0}, value: 1},
			{pos: space.Grid{5, 5}, value: 2},
			{pos: space.Grid{9, 9}, value: 3},
		})

		assert.ElementsMatch(t, []uint32{1, 2}, x.LookupRange(space.Grid{0, 0}, space.Grid{5, 5}))
		assert.Equal(t, []uint32{3}, x.Lookup(space.Grid{9, 9}))
		assert.Empty(t, x.Lookup(space.Grid{1, 1}))
	})

	t.Run("Empty", func(t *testing.T) {
		x := buildIndex(t, Config{Dims: 2, Bits: 8}, nil)
		assert.Equal(t, 0, x.Len())
		assert.Empty(t, x.LookupRange(space.Grid{0, 0}, space.Grid{255, 255}))
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := Build(Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{1, 2, 3}, value: 1},
		}, posOf, valOf)

		var mismatch *index.ErrDimensionMismatch
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 2, mismatch.Expected)
		assert.Equal(t, 3, mismatch.Actual)
	})

	t.Run("RaisesShiftForLargeCoordinates", func(t *testing.T) {
		x := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{70000, 3}, value: 1},
		})

		assert.Equal(t, uint32(9), x.Config().Shift)
		assert.Equal(t, []uint32{1}, x.Lookup(space.Grid{70000, 3}))
	})

	t.Run("MultisetCells", func(t *testing.T) {
		// Two distinct values at the same position are both retained.
		x := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{7, 7}, value: 10},
			{pos: space.Grid{7, 7}, value: 11},
		})

		assert.ElementsMatch(t, []uint32{10, 11}, x.Lookup(space.Grid{7, 7}))
	})
}

func TestScan(t *testing.T) {
	t.Run("ExactFilterWithCoarseCells", func(t *testing.T) {
		// A 3-bit curve over 8-bit coordinates forces a cell shift of 5, so
		// many positions share a cell. The exact position filter must still
		// separate them.
		x := buildIndex(t, Config{Dims: 2, Bits: 3}, []entry{
			{pos: space.Grid{10, 10}, value: 1},
			{pos: space.Grid{12, 12}, value: 2},
			{pos: space.Grid{200, 200}, value: 3},
		})

		assert.Equal(t, []uint32{1}, x.LookupRange(space.Grid{9, 9}, space.Grid{11, 11}))
		assert.Empty(t, x.LookupRange(space.Grid{13, 13}, space.Grid{20, 20}))
	})

	t.Run("EarlyStop", func(t *testing.T) {
		x := buildIndex(t, Config{Dims: 1, Bits: 8}, []entry{
			{pos: space.Grid{1}, value: 1},
			{pos: space.Grid{2}, value: 2},
			{pos: space.Grid{3}, value: 3},
		})

		var seen int
		x.Scan(space.Grid{0}, space.Grid{255}, func(space.Grid, uint32) bool {
			seen++
			return seen < 2
		})
		assert.Equal(t, 2, seen)
	})

	t.Run("InvertedBox", func(t *testing.T) {
		x := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{5, 5}, value: 1},
		})
		assert.Empty(t, x.LookupRange(space.Grid{6, 0}, space.Grid{5, 10}))
	})

	t.Run("AgainstBruteForce", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		entries := make([]entry, 500)
		for i := range entries {
			entries[i] = entry{
				pos:   space.Grid{rng.Uint64() % 1024, rng.Uint64() % 1024, rng.Uint64() % 1024},
				value: uint32(i),
			}
		}
		x := buildIndex(t, Config{Dims: 3, Bits: 6}, entries)

		for trial := 0; trial < 20; trial++ {
			lo := space.Grid{rng.Uint64() % 1024, rng.Uint64() % 1024, rng.Uint64() % 1024}
			hi := space.Grid{lo[0] + rng.Uint64()%256, lo[1] + rng.Uint64()%256, lo[2] + rng.Uint64()%256}

			var want []uint32
			for _, e := range entries {
				if e.pos.Within(lo, hi) {
					want = append(want, e.value)
				}
			}
			assert.ElementsMatch(t, want, x.LookupRange(lo, hi))
		}
	})
}

func TestLookupValue(t *testing.T) {
	x := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
		{pos: space.Grid{1, 1}, value: 7},
		{pos: space.Grid{9, 9}, value: 7},
		{pos: space.Grid{3, 3}, value: 8},
	})

	positions := x.LookupValue(7)
	require.Len(t, positions, 2)
	assert.ElementsMatch(t, []space.Grid{{1, 1}, {9, 9}}, positions)

	assert.Empty(t, x.LookupValue(99))
}

func TestFromParts(t *testing.T) {
	t.Run("Roundtrip", func(t *testing.T) {
		built := buildIndex(t, Config{Dims: 2, Bits: 8}, []entry{
			{pos: space.Grid{0, 0}, value: 1},
			{pos: space.Grid{5, 5}, value: 2},
			{pos: space.Grid{9, 9}, value: 3},
		})

		x, err := FromParts(built.Config(), built.Codes(), built.Values(), built.Positions(), built.ByValue())
		require.NoError(t, err)

		assert.ElementsMatch(t, []uint32{1, 2}, x.LookupRange(space.Grid{0, 0}, space.Grid{5, 5}))
		assert.Equal(t, []uint32{3}, x.Lookup(space.Grid{9, 9}))
	})

	t.Run("InconsistentSections", func(t *testing.T) {
		_, err := FromParts(Config{Dims: 2, Bits: 8}, []uint64{1, 2}, []uint32{1}, []uint64{0, 0, 0, 0}, []uint32{0, 1})
		require.Error(t, err)

		_, err = FromParts(Config{Dims: 2, Bits: 8}, []uint64{1}, []uint32{1}, []uint64{0}, []uint32{0})
		require.Error(t, err)
	})
}
