package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path, err := store.Save("kitchen", []byte("first"), "png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kitchen.png"), path)

	path, err = store.Save("kitchen", []byte("second"), "png")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data), "latest write must replace the previous image")
}

func TestFileStore_URLFor(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/kitchen.bmp", store.URLFor("kitchen", "bmp"))
	assert.Equal(t, "/hall.jpg", store.URLFor("hall", ".jpg"))
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape", "a/b", `a\b`, "..", "", "  "} {
		_, err := store.Save(name, []byte("x"), "png")
		assert.Error(t, err, "name %q", name)
	}
}

func TestFileStore_CreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
