package transcode

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistryRegisterAndTake(t *testing.T) {
	r := NewSessionRegistry(nil, nil)
	assert.Nil(t, r.Current())

	r.Register("res1", "/tmp/webhls-a-b")

	current := r.Current()
	require.NotNil(t, current)
	assert.Equal(t, "res1", current.ResourceKey)
	assert.Equal(t, "/tmp/webhls-a-b", current.FolderPath)
	assert.False(t, current.CreatedAt.IsZero())

	folder, ok := r.TakeAndClear("res1")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/webhls-a-b", folder)
	assert.Nil(t, r.Current())

	// Second take finds nothing.
	_, ok = r.TakeAndClear("res1")
	assert.False(t, ok)
}

func TestSessionRegistryTakeWrongResource(t *testing.T) {
	r := NewSessionRegistry(nil, nil)
	r.Register("res1", "/tmp/one")

	_, ok := r.TakeAndClear("res2")
	assert.False(t, ok)

	// The registered session is untouched.
	current := r.Current()
	require.NotNil(t, current)
	assert.Equal(t, "res1", current.ResourceKey)
}

func TestSessionRegistryRegisterEvicts(t *testing.T) {
	dir := t.TempDir()
	evicted := filepath.Join(dir, "webhls-old")
	require.NoError(t, os.Mkdir(evicted, 0o755))

	r := NewSessionRegistry(nil, nil)
	r.Register("res1", evicted)
	r.Register("res2", filepath.Join(dir, "webhls-new"))

	current := r.Current()
	require.NotNil(t, current)
	assert.Equal(t, "res2", current.ResourceKey)

	// Eviction does not delete the previous folder.
	assert.DirExists(t, evicted)
}

func TestSessionRegistryCleanupAsync(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "webhls-x")
	require.NoError(t, os.Mkdir(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "playlist.m3u8"), []byte("#EXTM3U"), 0o644))

	r := NewSessionRegistry(nil, nil)
	r.Register("res1", folder)
	r.CleanupAsync("res1")

	// The mapping is gone immediately.
	assert.Nil(t, r.Current())

	// Deletion happens in the background.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(folder)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionRegistryCleanupAsyncNoSession(t *testing.T) {
	r := NewSessionRegistry(nil, nil)
	// No session registered; must not panic.
	r.CleanupAsync("res1")
}
