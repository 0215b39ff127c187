package hashmap

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/index"
)

type record struct {
	id   string
	kind string
}

func kindOf(r record) string { return r.kind }
func idOf(r record) string   { return r.id }

func TestBuild(t *testing.T) {
	t.Run("LookupByKey", func(t *testing.T) {
		records := []record{
			{id: "a", kind: "gene"},
			{id: "b", kind: "gene"},
			{id: "c", kind: "protein"},
		}

		idx, err := Build(records, kindOf, idOf)
		require.NoError(t, err)

		assert.Equal(t, 2, idx.Len())
		assert.ElementsMatch(t, []string{"a", "b"}, idx.Lookup("gene"))
		assert.Equal(t, []string{"c"}, idx.Lookup("protein"))
		assert.Empty(t, idx.Lookup("missing"))
		assert.True(t, idx.Contains("gene"))
		assert.False(t, idx.Contains("missing"))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		records := []record{
			{id: "a", kind: "gene"},
			{id: "a", kind: "protein"},
		}

		_, err := Build(records, kindOf, idOf)
		require.ErrorIs(t, err, index.ErrDuplicateID)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Build(nil, kindOf, idOf)
		require.ErrorIs(t, err, index.ErrEmptyBuild)
	})

	t.Run("Keys", func(t *testing.T) {
		records := []record{
			{id: "a", kind: "z"},
			{id: "b", kind: "m"},
			{id: "c", kind: "a"},
		}

		idx, err := Build(records, kindOf, idOf)
		require.NoError(t, err)

		idx.SortKeys(func(a, b string) bool { return a < b })
		assert.Equal(t, []string{"a", "m", "z"}, idx.Keys())
		assert.True(t, sort.StringsAreSorted(idx.Keys()))
	})
}
