package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	var got []doc
	err = fs.Get(ctx, "products", &got)
	assert.True(t, errors.Is(err, ErrNotFound))

	want := []doc{{Name: "Curd (200g)", Price: 20}}
	require.NoError(t, fs.Put(ctx, "products", want))
	require.NoError(t, fs.Get(ctx, "products", &got))
	assert.Equal(t, want, got)

	_, err = os.Stat(filepath.Join(dir, "products.json"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStoreRejectsBadKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, fs.Put(context.Background(), "../escape", doc{}))
	assert.Error(t, fs.Get(context.Background(), "a/b", &doc{}))
}

func TestFileStoreCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{not json"), 0o644))

	err = fs.Get(context.Background(), "settings", &doc{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
