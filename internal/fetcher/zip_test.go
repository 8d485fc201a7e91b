package fetcher

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP_MultiFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"a.csv": "a,b,c",
		"b.csv": "d,e,f",
		"c.txt": "notes",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	for _, path := range extracted {
		_, err := os.Stat(path)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(data))
}

func TestExtractZIP_OverwritesStaleFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"a.csv": "fresh rows",
		"b.csv": "new file",
	})

	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "a.csv"), []byte("stale rows from a previous run"), 0o644))

	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 2)

	data, err := os.ReadFile(filepath.Join(destDir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "fresh rows", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new file", string(data))
}

func TestExtractZIP_WithSubdirectory(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "nested.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	w := zip.NewWriter(f)

	_, err = w.Create("subdir/")
	require.NoError(t, err)

	fw, err := w.Create("subdir/data.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("nested content")) //nolint:errcheck

	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	// Only the file counts; directory entries return empty paths.
	assert.Len(t, extracted, 1)

	data, err := os.ReadFile(filepath.Join(destDir, "subdir", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested content", string(data))
}

func TestExtractZIP_ZipSlipPrevention(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "malicious.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	fw, err := w.Create("../../../etc/passwd")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("malicious")) //nolint:errcheck
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	destDir := t.TempDir()
	_, err = ExtractZIP(zipPath, destDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtraction))
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notazip.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	destDir := t.TempDir()
	_, err := ExtractZIP(path, destDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtraction))
}

func TestExtractZIP_MissingArchive(t *testing.T) {
	_, err := ExtractZIP(filepath.Join(t.TempDir(), "absent.zip"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtraction))
}
