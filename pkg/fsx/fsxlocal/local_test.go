package fsxlocal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/fsx"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(`{}`), 0o600))

	lfs, err := NewLocalFileSystem(dir)
	require.NoError(t, err)
	ctx := context.Background()

	data, err := lfs.ReadFile(ctx, "users.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	ok, err := lfs.Exists(ctx, "users.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lfs.Exists(ctx, "missing.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = lfs.ReadFile(ctx, "missing.json")
	assert.ErrorIs(t, err, fsx.ErrNotExist)
}

func TestRejectsEscape(t *testing.T) {
	lfs, err := NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)

	_, err = lfs.ReadFile(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}

func TestBaseMustExist(t *testing.T) {
	_, err := NewLocalFileSystem(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
