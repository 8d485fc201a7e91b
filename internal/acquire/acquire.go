// Package acquire implements the resolve-then-fetch-then-extract pipeline:
// a discovery endpoint is resolved to the real download URL, the resource is
// streamed into a destination directory, and zip archives are unpacked in
// place with cleanup-after-extract.
package acquire

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/internal/fetcher"
	"github.com/civicdata/opendata-cli/internal/resolver"
)

// Request describes one acquisition.
type Request struct {
	// Discovery is the endpoint whose response names the real download URL.
	Discovery string

	// Rule extracts the download URL from the discovery response.
	Rule resolver.Rule

	// DestDir receives the downloaded file and any extracted members.
	// Created if absent.
	DestDir string

	// Archive marks the resource as a zip archive to extract after download.
	Archive bool
}

// Result reports a completed acquisition.
type Result struct {
	// ID is a per-run identifier, also attached to every log line.
	ID string

	// ResolvedURL is the download URL extracted from the discovery response.
	ResolvedURL string

	// FilePath is where the resource was written. For archives the file is
	// deleted after successful extraction and this is the path it had.
	FilePath string

	// Extracted lists the files unpacked from the archive, if any.
	Extracted []string
}

// Run executes the acquisition steps strictly in sequence. Any step failure
// aborts the run with that step's error and leaves the destination directory
// in whatever partial state preceded the failure; there is no rollback.
// The archive is deleted only after a fully successful extraction, so a
// failed extraction leaves it on disk for diagnosis.
func Run(ctx context.Context, f fetcher.Fetcher, req Request) (*Result, error) {
	res := &Result{ID: uuid.NewString()}
	log := zap.L().With(
		zap.String("acquisition", res.ID),
		zap.String("discovery", req.Discovery),
	)

	resolved, err := resolver.Resolve(ctx, f, req.Discovery, req.Rule)
	if err != nil {
		return nil, err
	}
	res.ResolvedURL = resolved
	log.Info("resolved download URL", zap.String("url", resolved))

	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return nil, eris.Wrapf(fetcher.ErrFetch, "create dest dir %s: %v", req.DestDir, err)
	}

	res.FilePath = filepath.Join(req.DestDir, downloadName(resolved))
	n, err := f.DownloadToFile(ctx, resolved, res.FilePath)
	if err != nil {
		return nil, err
	}
	log.Info("downloaded resource", zap.String("path", res.FilePath), zap.Int64("bytes", n))

	if !req.Archive {
		return res, nil
	}

	extracted, err := fetcher.ExtractZIP(res.FilePath, req.DestDir)
	if err != nil {
		return nil, err
	}
	res.Extracted = extracted

	if err := os.Remove(res.FilePath); err != nil {
		log.Warn("could not remove archive after extraction",
			zap.String("path", res.FilePath),
			zap.Error(err),
		)
	}
	log.Info("extracted archive", zap.Int("files", len(extracted)))

	return res, nil
}

// downloadName derives a local file name from the resolved URL path,
// falling back to a fixed name for URLs with no usable basename.
func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.bin"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download.bin"
	}
	return name
}
