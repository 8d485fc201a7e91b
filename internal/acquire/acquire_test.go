package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdata/opendata-cli/internal/fetcher"
	"github.com/civicdata/opendata-cli/internal/resolver"
)

func newTestFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
}

// zipBytes builds an in-memory zip archive.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// discoveryServer serves a discovery document pointing at its own /data.zip,
// which returns the given archive bytes.
func discoveryServer(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/discover":
			fmt.Fprintf(w, `{"status":"SUCCESS","object":"%s/data.zip"}`, srv.URL)
		case "/data.zip":
			w.Write(archive)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_ResolveFetchExtract(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"a.csv": "fresh a",
		"b.csv": "fresh b",
	})
	srv := discoveryServer(t, archive)

	destDir := t.TempDir()
	// Stale file from a previous run must be overwritten.
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "a.csv"), []byte("stale a"), 0o644))

	res, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL + "/discover",
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   destDir,
		Archive:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, srv.URL+"/data.zip", res.ResolvedURL)
	assert.Len(t, res.Extracted, 2)

	data, err := os.ReadFile(filepath.Join(destDir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "fresh a", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "fresh b", string(data))

	// Cleanup-after-extract: the archive must be gone.
	_, err = os.Stat(res.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_CreatesDestDir(t *testing.T) {
	srv := discoveryServer(t, zipBytes(t, map[string]string{"x.csv": "x"}))

	destDir := filepath.Join(t.TempDir(), "nested", "dest")
	_, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL + "/discover",
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   destDir,
		Archive:   true,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(destDir, "x.csv"))
	require.NoError(t, err)
}

func TestRun_NonArchive(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/discover":
			fmt.Fprintf(w, `{"object":"%s/report.csv"}`, srv.URL)
		case "/report.csv":
			w.Write([]byte("col1,col2\n1,2\n"))
		}
	}))
	defer srv.Close()

	destDir := t.TempDir()
	res, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL + "/discover",
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   destDir,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Extracted)
	assert.Equal(t, filepath.Join(destDir, "report.csv"), res.FilePath)

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "col1,col2\n1,2\n", string(data))
}

func TestRun_ResolutionFailureLeavesDestUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED"}`))
	}))
	defer srv.Close()

	destDir := filepath.Join(t.TempDir(), "never-created")
	_, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL,
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   destDir,
		Archive:   true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrResolution))

	_, err = os.Stat(destDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_FetchFailure(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/discover" {
			fmt.Fprintf(w, `{"object":"%s/data.zip"}`, srv.URL)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL + "/discover",
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   t.TempDir(),
		Archive:   true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrFetch))
}

func TestRun_ExtractionFailureKeepsArchive(t *testing.T) {
	srv := discoveryServer(t, []byte("this is not a zip archive"))

	destDir := t.TempDir()
	_, err := Run(context.Background(), newTestFetcher(), Request{
		Discovery: srv.URL + "/discover",
		Rule:      resolver.JSONField{Path: "object"},
		DestDir:   destDir,
		Archive:   true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrExtraction))

	// The broken archive is retained for diagnosis.
	data, err := os.ReadFile(filepath.Join(destDir, "data.zip"))
	require.NoError(t, err)
	assert.Equal(t, "this is not a zip archive", string(data))
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "data.zip", downloadName("https://example.org/tables/data.zip"))
	assert.Equal(t, "14100022-eng.zip", downloadName("https://www150.statcan.gc.ca/n1/tbl/csv/14100022-eng.zip"))
	assert.Equal(t, "download.bin", downloadName("https://example.org/"))
	assert.Equal(t, "download.bin", downloadName("://bad"))
}
