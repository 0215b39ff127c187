package persistence

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/space"
	"github.com/hupe1980/spatialgo/spacedb"
)

func testImage(t *testing.T) *Image {
	t.Helper()

	x, err := space.NewAxis("mm", space.Point{1, 0, 0}, space.SetN, 0, 10, 10)
	require.NoError(t, err)
	y, err := space.NewAxis("mm", space.Point{0, 1, 0}, space.SetN, 0, 10, 10)
	require.NoError(t, err)
	plate := space.New("plate", space.NewCoordinateSystem(space.Point{0, 0, 0}, x, y))

	table, err := BuildPropertyTable([]Property{
		{ID: "obj-a", Kind: "gene"},
		{ID: "obj-b", Kind: "gene"},
		{ID: "obj-c", Kind: "protein"},
	})
	require.NoError(t, err)

	rowOf := func(id string) uint32 {
		row, ok := table.Find(id)
		require.True(t, ok)
		return row
	}

	store, err := spacedb.Build("plate", []spacedb.Entry{
		{Pos: space.Grid{0, 0}, Value: rowOf("obj-a")},
		{Pos: space.Grid{5, 5}, Value: rowOf("obj-b")},
		{Pos: space.Grid{9, 9}, Value: rowOf("obj-c")},
	}, 2, spacedb.Options{
		Scales:      [][]uint32{{0, 0}, {1, 1}},
		SpaceVolume: plate.Volume(),
		MaxSteps:    plate.System.MaxSteps(),
	})
	require.NoError(t, err)

	return &Image{
		Title:   "test-dataset",
		Version: "1.0.0",
		Spaces:  []space.Space{plate},
		Table:   table,
		Stores:  []*spacedb.DB{store},
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	img := testImage(t)

	for _, c := range []codec.Codec{nil, codec.JSON{}, codec.GoJSON{}} {
		data, err := Encode(img, c)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(data), headerSize)

		got, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, "test-dataset", got.Title)
		assert.Equal(t, "1.0.0", got.Version)
		require.Len(t, got.Spaces, 1)
		assert.Equal(t, "plate", got.Spaces[0].Name)
		assert.True(t, got.Spaces[0].Equal(&img.Spaces[0]))

		// Property table survives with its sort order.
		require.Equal(t, 3, got.Table.Len())
		id, kind, err := got.Table.Row(0)
		require.NoError(t, err)
		assert.Equal(t, "obj-a", id)
		assert.Equal(t, "gene", kind)
		row, ok := got.Table.Find("obj-c")
		require.True(t, ok)
		assert.Equal(t, uint32(2), row)

		// Index semantics survive.
		require.Len(t, got.Stores, 1)
		store := got.Stores[0]
		assert.Equal(t, "plate", store.Space())
		require.Len(t, store.Resolutions(), 2)

		fine := store.Resolutions()[0]
		rowA, _ := got.Table.Find("obj-a")
		rowB, _ := got.Table.Find("obj-b")
		assert.ElementsMatch(t, []uint32{rowA, rowB},
			fine.Index.LookupRange(space.Grid{0, 0}, space.Grid{5, 5}))
		assert.Empty(t, fine.Index.Lookup(space.Grid{1, 1}))

		assert.Equal(t, []uint32{1, 1}, store.Resolutions()[1].Scale)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	img := testImage(t)
	data, err := Encode(img, nil)
	require.NoError(t, err)

	corrupt := func(mutate func(b []byte)) []byte {
		b := make([]byte, len(data))
		copy(b, data)
		mutate(b)
		return b
	}

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(data[:headerSize-1])
		require.ErrorIs(t, err, ErrTruncated)
		var fe *FormatError
		assert.ErrorAs(t, err, &fe)
	})

	t.Run("BadMagic", func(t *testing.T) {
		_, err := Decode(corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[0:], 0xdeadbeef)
		}))
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("BadVersion", func(t *testing.T) {
		_, err := Decode(corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[4:], 0x7fffffff)
		}))
		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("FlippedBodyByte", func(t *testing.T) {
		_, err := Decode(corrupt(func(b []byte) {
			b[len(b)-1] ^= 0xff
		}))
		assert.True(t, IsChecksumMismatch(err), "got %v", err)
	})

	t.Run("DescriptorOutOfBounds", func(t *testing.T) {
		_, err := Decode(corrupt(func(b []byte) {
			binary.LittleEndian.PutUint64(b[8:], uint64(len(b)))
			binary.LittleEndian.PutUint64(b[16:], 1<<40)
			binary.LittleEndian.PutUint32(b[24:], Checksum(b[headerSize:]))
		}))
		require.ErrorIs(t, err, ErrTruncated)
	})
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("hellp"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestViews(t *testing.T) {
	t.Run("Uint32Roundtrip", func(t *testing.T) {
		in := []uint32{1, 2, 0xffffffff}
		out, err := viewUint32(bytesOfUint32(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Uint64Roundtrip", func(t *testing.T) {
		in := []uint64{1, 2, 1 << 63}
		out, err := viewUint64(bytesOfUint64(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("RaggedLength", func(t *testing.T) {
		_, err := viewUint32(make([]byte, 5))
		require.Error(t, err)

		_, err = viewUint64(make([]byte, 12))
		require.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := viewUint32(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestPropertyTable(t *testing.T) {
	t.Run("SortsAndFinds", func(t *testing.T) {
		table, err := BuildPropertyTable([]Property{
			{ID: "z", Kind: "protein"},
			{ID: "a", Kind: "gene"},
			{ID: "m", Kind: "gene"},
		})
		require.NoError(t, err)

		require.Equal(t, 3, table.Len())
		id, _, err := table.Row(0)
		require.NoError(t, err)
		assert.Equal(t, "a", id)

		row, ok := table.Find("m")
		require.True(t, ok)
		assert.Equal(t, uint32(1), row)

		_, ok = table.Find("missing")
		assert.False(t, ok)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		_, err := BuildPropertyTable([]Property{
			{ID: "a", Kind: "gene"},
			{ID: "a", Kind: "protein"},
		})
		require.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		table, err := BuildPropertyTable(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
		_, ok := table.Find("a")
		assert.False(t, ok)
	})

	t.Run("FromParts", func(t *testing.T) {
		table, err := BuildPropertyTable([]Property{{ID: "a", Kind: "gene"}})
		require.NoError(t, err)

		clone := TableFromParts(table.Offsets(), table.Blob())
		id, kind, err := clone.Row(0)
		require.NoError(t, err)
		assert.Equal(t, "a", id)
		assert.Equal(t, "gene", kind)
	})

	t.Run("TruncatedBlob", func(t *testing.T) {
		table := TableFromParts([]uint32{0}, []byte{5, 0, 'a'})
		_, _, err := table.Row(0)
		require.Error(t, err)
	})

	t.Run("RowOutOfRange", func(t *testing.T) {
		table, err := BuildPropertyTable([]Property{{ID: "a", Kind: "gene"}})
		require.NoError(t, err)
		_, _, err = table.Row(7)
		require.Error(t, err)
	})
}
