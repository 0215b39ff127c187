package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("in-memory blob content")
	require.NoError(t, store.Put(ctx, "x.svi", data))

	blob, err := store.Open(ctx, "x.svi")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 6)
	n, err := blob.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "memory", string(buf[:n]))

	all, err := blob.(Mappable).Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, all)

	require.NoError(t, store.Delete(ctx, "x.svi"))
	_, err = store.Open(ctx, "x.svi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_OpenIsolatesFromLaterPuts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x.svi", []byte("v1")))

	blob, err := store.Open(ctx, "x.svi")
	require.NoError(t, err)
	defer blob.Close()

	require.NoError(t, store.Put(ctx, "x.svi", []byte("v2")))

	all, err := blob.(Mappable).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), all)
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a-1", nil))
	require.NoError(t, store.Put(ctx, "a-2", nil))
	require.NoError(t, store.Put(ctx, "b-1", nil))

	names, err := store.List(ctx, "a-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a-1", "a-2"}, names)
}
