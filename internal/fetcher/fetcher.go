// Package fetcher downloads remote resources over HTTP and extracts ZIP archives.
package fetcher

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrFetch marks download failures: transport errors, non-2xx statuses, and
// I/O failures writing the destination file.
var ErrFetch = eris.New("fetch failed")

// ErrExtraction marks corrupt or unsupported archives.
var ErrExtraction = eris.New("archive extraction failed")

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path,
	// overwriting an existing file. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
