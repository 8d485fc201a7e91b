package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts all files from a ZIP archive into the destination
// directory, overwriting existing files of the same name. Returns the list
// of extracted file paths. On a mid-archive failure the files written so
// far are left in place and returned alongside the error.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(ErrExtraction, "open archive %s: %v", zipPath, err)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractZIPEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Wrapf(ErrExtraction, "illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrapf(ErrExtraction, "create directory %s: %v", destPath, err)
		}
		return "", nil
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrapf(ErrExtraction, "create parent directory for %s: %v", destPath, err)
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(ErrExtraction, "open entry %s: %v", f.Name, err)
	}
	defer rc.Close() //nolint:errcheck

	// os.Create truncates, which gives overwrite semantics for stale files.
	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrapf(ErrExtraction, "create file %s: %v", destPath, err)
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(ErrExtraction, "write file %s: %v", destPath, err)
	}

	return destPath, nil
}
