package storage

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/space"
)

const spacesJSON = `[
	{
		"name": "plate",
		"origin": [0, 0, 0],
		"axes": [
			{
				"measurement_unit": "mm",
				"unit_vector": [1, 0, 0],
				"graduation": {"set": "N", "minimum": 0, "maximum": 10, "steps": 10}
			},
			{
				"measurement_unit": "mm",
				"unit_vector": [0, 1, 0],
				"graduation": {"set": "N", "minimum": 0, "maximum": 10, "steps": 10}
			}
		]
	}
]`

const featuresJSON = `[
	{
		"properties": {"type": "gene", "id": "id1"},
		"shapes": [
			{
				"type": "Point",
				"reference_space": "plate",
				"vertices": [["0", "0"]]
			}
		]
	},
	{
		"properties": {"id": "id2"},
		"shapes": [
			{
				"type": "MultiPoint",
				"reference_space": "plate",
				"vertices": [["5", "5"], ["9.0", "9.0"]]
			}
		]
	}
]`

func TestParseSpaces(t *testing.T) {
	spaces, err := ParseSpaces([]byte(spacesJSON), nil)
	require.NoError(t, err)
	require.Len(t, spaces, 1)

	sp := spaces[0]
	assert.Equal(t, "plate", sp.Name)
	assert.Equal(t, 2, sp.Dims())
	assert.Equal(t, uint64(10), sp.System.MaxSteps())
	assert.InDelta(t, 100.0, sp.Volume(), 1e-9)

	t.Run("BadAxis", func(t *testing.T) {
		bad := `[{"name": "x", "origin": [0], "axes": [
			{"measurement_unit": "lightyear", "unit_vector": [1], "graduation": {"set": "N", "minimum": 0, "maximum": 1, "steps": 1}}
		]}]`
		_, err := ParseSpaces([]byte(bad), nil)
		require.ErrorIs(t, err, space.ErrUnknownUnit)
	})

	t.Run("BadJSON", func(t *testing.T) {
		_, err := ParseSpaces([]byte("{"), nil)
		require.Error(t, err)
	})
}

func TestParseFeatures(t *testing.T) {
	records, err := ParseFeatures([]byte(featuresJSON), nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{ID: "id1", Kind: "gene", Space: "plate", Position: space.Point{0, 0}}, records[0])

	// Missing type falls back to the feature kind; one record per vertex.
	assert.Equal(t, "Feature", records[1].Kind)
	assert.Equal(t, space.Point{5, 5}, records[1].Position)
	assert.Equal(t, space.Point{9, 9}, records[2].Position)

	t.Run("BadCoordinate", func(t *testing.T) {
		bad := `[{"properties": {"id": "x"}, "shapes": [
			{"reference_space": "plate", "vertices": [["zero", "0"]]}
		]}]`
		_, err := ParseFeatures([]byte(bad), nil)
		require.Error(t, err)
	})
}

func TestBatchRoundtrip(t *testing.T) {
	spaces, err := ParseSpaces([]byte(spacesJSON), nil)
	require.NoError(t, err)
	records, err := ParseFeatures([]byte(featuresJSON), nil)
	require.NoError(t, err)

	batch := Convert("imported", "2.1", spaces, records)

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		data, err := batch.Encode(nil, comp)
		require.NoError(t, err)

		got, err := DecodeBatch(data)
		require.NoError(t, err)

		assert.Equal(t, "imported", got.Title)
		assert.Equal(t, "2.1", got.Version)
		require.Len(t, got.Spaces, 1)
		assert.True(t, got.Spaces[0].Equal(&spaces[0]))
		assert.Equal(t, records, got.Records)
	}
}

func TestDecodeBatchRejectsGarbage(t *testing.T) {
	_, err := DecodeBatch([]byte("short"))
	require.Error(t, err)

	_, err = DecodeBatch(bytes.Repeat([]byte{0xab}, 64))
	require.Error(t, err)

	// Valid header, unknown codec name.
	batch := Convert("t", "1", nil, nil)
	data, err := batch.Encode(nil, CompressionNone)
	require.NoError(t, err)
	data[10] = 'x'
	_, err = DecodeBatch(data)
	require.Error(t, err)
}

func TestBatchBuild(t *testing.T) {
	ctx := context.Background()

	spaces, err := ParseSpaces([]byte(spacesJSON), nil)
	require.NoError(t, err)
	records, err := ParseFeatures([]byte(featuresJSON), nil)
	require.NoError(t, err)

	core, err := Convert("imported", "2.1", spaces, records).Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, "imported", core.Title())

	items, err := core.GetByShape(ctx, spatialgo.QueryParams{}, "plate",
		space.BoundingBox(space.Point{0, 0}, space.Point{5, 5}))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = core.GetByID(ctx, spatialgo.QueryParams{}, "id2")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCompression(t *testing.T) {
	compressible := bytes.Repeat([]byte("spatial index block payload "), 256)

	t.Run("Roundtrip", func(t *testing.T) {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			block, err := compressBlock(compressible, comp)
			require.NoError(t, err)

			out, err := decompressBlock(block, comp)
			require.NoError(t, err)
			assert.Equal(t, compressible, out)

			if comp != CompressionNone {
				assert.Less(t, len(block), len(compressible))
			}
		}
	})

	t.Run("IncompressibleFallsBack", func(t *testing.T) {
		random := make([]byte, 4096)
		_, err := rand.New(rand.NewSource(42)).Read(random)
		require.NoError(t, err)

		block, err := compressBlock(random, CompressionLZ4)
		require.NoError(t, err)
		// CompressedSize 0 marks stored-uncompressed blocks.
		assert.Equal(t, uint32(0), uint32(block[4])|uint32(block[5])<<8|uint32(block[6])<<16|uint32(block[7])<<24)

		out, err := decompressBlock(block, CompressionLZ4)
		require.NoError(t, err)
		assert.Equal(t, random, out)
	})

	t.Run("UnknownAlgorithm", func(t *testing.T) {
		_, err := compressBlock(compressible, Compression(9))
		require.Error(t, err)

		block, err := compressBlock(compressible, CompressionZSTD)
		require.NoError(t, err)
		_, err = decompressBlock(block, Compression(9))
		require.Error(t, err)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := decompressBlock([]byte{1, 2, 3}, CompressionNone)
		require.Error(t, err)
	})
}

func TestBatchCodecName(t *testing.T) {
	batch := Convert("t", "1", nil, nil)

	data, err := batch.Encode(codec.JSON{}, CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, "json", string(data[10:10+int(data[9])]))

	got, err := DecodeBatch(data)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}
