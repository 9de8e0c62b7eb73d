package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorageBrokerPutDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	root := t.TempDir()

	srcPath := filepath.Join(srcDir, "good.nc")
	require.NoError(t, os.WriteFile(srcPath, []byte("netcdf-bytes"), 0o644))

	b := NewLocalFileStorageBroker(root)

	exists, err := b.Exists(ctx, "archive/good.nc")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Put(ctx, srcPath, "archive/good.nc"))

	exists, err = b.Exists(ctx, "archive/good.nc")
	require.NoError(t, err)
	assert.True(t, exists)

	content, err := os.ReadFile(filepath.Join(root, "archive", "good.nc"))
	require.NoError(t, err)
	assert.Equal(t, "netcdf-bytes", string(content))

	require.NoError(t, b.Delete(ctx, "archive/good.nc"))

	exists, err = b.Exists(ctx, "archive/good.nc")
	require.NoError(t, err)
	assert.False(t, exists, "query after delete must report not-exists (spec.md §8 round-trip property)")
}

func TestLocalFileStorageBrokerDeleteMissingIsNotError(t *testing.T) {
	b := NewLocalFileStorageBroker(t.TempDir())
	assert.NoError(t, b.Delete(context.Background(), "never-existed.csv"))
}

func TestNewStorageBrokerDispatchesByScheme(t *testing.T) {
	b, err := NewStorageBroker("file:///tmp/store")
	require.NoError(t, err)
	assert.Equal(t, "file", b.Scheme())

	_, err = NewStorageBroker("ftp://unsupported/path")
	assert.Error(t, err)
}
