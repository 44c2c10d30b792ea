// Package blob provides hierarchical file storage for large model artifacts
// and small sidecar metadata files, plus the HTTP transfer used to populate
// it. The transport is plain GET/HEAD against an artifact URL; artifacts are
// opaque blobs.
package blob

import (
	"context"

	"enhancerd/pkg/types"
)

// Info describes a stored file.
type Info struct {
	Size int64
}

// DownloadOptions tunes a single transfer.
type DownloadOptions struct {
	Headers map[string]string
	// OnProgress is invoked at a bounded rate with non-decreasing byte counts.
	OnProgress func(types.Progress)
}

// Store is the file-storage contract.
type Store interface {
	BaseDir() string
	Exists(path string) bool
	MkdirAll(path string) error
	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	Stat(path string) (Info, error)
	RemoveAll(path string) error
	// Probe issues a HEAD request and reports the advertised size and status.
	Probe(ctx context.Context, url string, headers map[string]string) (size int64, status int, err error)
	// Download transfers url to dest and returns the HTTP status code.
	// The destination is written atomically (temp file then rename).
	Download(ctx context.Context, url, dest string, opt DownloadOptions) (status int, err error)
}
