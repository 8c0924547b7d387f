package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/storage")
	require.NoError(t, err)
	return store
}

func TestLocalStorePut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte("original bytes")
	result, err := store.Put(ctx, "photos/abc.jpg", data, "image/jpeg", map[string]string{"photo_id": "abc"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/storage/photos/abc.jpg", result.URL)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.NotEmpty(t, result.ETag)

	stored, err := os.ReadFile(filepath.Join(store.basePath, "photos", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestLocalStorePutOverwriteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Put(ctx, "photos/abc.jpg", []byte("v1"), "image/jpeg", nil)
	require.NoError(t, err)
	second, err := store.Put(ctx, "photos/abc.jpg", []byte("v2 longer"), "image/jpeg", nil)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.NotEqual(t, first.ETag, second.ETag)

	stored, err := os.ReadFile(filepath.Join(store.basePath, "photos", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2 longer"), stored)
}

func TestLocalStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "photos/abc.jpg", []byte("bytes"), "image/jpeg", nil)
	require.NoError(t, err)

	existed, err := store.Delete(ctx, "photos/abc.jpg")
	require.NoError(t, err)
	assert.True(t, existed)

	// Deleting an absent object is not an error.
	existed, err = store.Delete(ctx, "photos/abc.jpg")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "/etc/passwd", "../outside.txt", "photos/../../outside.txt"} {
		_, err := store.Put(ctx, name, []byte("x"), "text/plain", nil)
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestLocalStoreURLIsPure(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, "http://localhost:8080/storage/photos/missing.jpg", store.URL("photos/missing.jpg"))
}

func TestLocalStoreList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "photos/old.jpg", []byte("old"), "image/jpeg", nil)
	require.NoError(t, err)
	_, err = store.Put(ctx, "photos/new.jpg", []byte("new"), "image/jpeg", nil)
	require.NoError(t, err)
	_, err = store.Put(ctx, "thumbnails/old_small.jpg", []byte("thumb"), "image/jpeg", nil)
	require.NoError(t, err)

	// Force a stable modification order regardless of filesystem resolution.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.basePath, "photos", "old.jpg"), past, past))

	objects, err := store.List(ctx, "photos")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "photos/new.jpg", objects[0].Name)
	assert.Equal(t, "photos/old.jpg", objects[1].Name)
	assert.Equal(t, "http://localhost:8080/storage/photos/new.jpg", objects[0].URL)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
