package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskUsageBytesSumsFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("12345"), 0o600))

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("1234567890"), 0o600))

	total, err := DiskUsageBytes(dir)
	require.NoError(t, err)
	require.Equal(t, int64(15), total)
}

func TestDiskUsageBytesSkipsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("12345"), 0o600))

	total, err := DiskUsageBytes(dir, filepath.Join(dir, "missing"), "")
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
}

func TestDiskUsageBytesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	total, err := DiskUsageBytes(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
}
