package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mirroredTrees returns a source tree and an identical copy of it.
func mirroredTrees(t *testing.T) (string, string) {
	t.Helper()
	src := fixtureTree(t)
	dst := t.TempDir()
	require.NoError(t, CopyEngine{}.Sync(context.Background(), src, dst))
	return src, dst
}

func TestVerifyTreesIdentical(t *testing.T) {
	src, dst := mirroredTrees(t)
	assert.NoError(t, VerifyTrees(src, dst))
}

func TestVerifyTreesContentMismatch(t *testing.T) {
	src, dst := mirroredTrees(t)
	// Same size, different bytes: only the hash can tell.
	require.NoError(t, os.WriteFile(filepath.Join(dst, "dump.sql"), []byte("create tablE"), 0o644))

	err := VerifyTrees(src, dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVerifyMismatch))
	assert.Contains(t, err.Error(), "content differs")
}

func TestVerifyTreesSizeMismatch(t *testing.T) {
	src, dst := mirroredTrees(t)
	require.NoError(t, os.WriteFile(filepath.Join(dst, "dump.sql"), []byte("tiny"), 0o644))

	err := VerifyTrees(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size")
}

func TestVerifyTreesMissingFile(t *testing.T) {
	src, dst := mirroredTrees(t)
	require.NoError(t, os.Remove(filepath.Join(dst, "filestore", "ab", "blob")))

	err := VerifyTrees(src, dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVerifyMismatch))
	assert.Contains(t, err.Error(), "missing")
}

func TestVerifyTreesExtraneousFile(t *testing.T) {
	src, dst := mirroredTrees(t)
	require.NoError(t, os.WriteFile(filepath.Join(dst, "extra"), []byte("x"), 0o644))

	err := VerifyTrees(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraneous")
}

func TestVerifyTreesSymlinkTargetMismatch(t *testing.T) {
	src, dst := mirroredTrees(t)
	require.NoError(t, os.Remove(filepath.Join(dst, "latest")))
	require.NoError(t, os.Symlink("filestore", filepath.Join(dst, "latest")))

	err := VerifyTrees(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symlink")
}
