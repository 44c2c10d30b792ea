package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"enhancerd/pkg/types"
)

// progressInterval bounds how often OnProgress fires during a transfer.
const progressInterval = 150 * time.Millisecond

// DiskStore implements Store on the local filesystem with net/http transfers.
type DiskStore struct {
	base   string
	client *http.Client
	log    zerolog.Logger

	// progressEvery overrides progressInterval; tests set it to 0 to observe
	// every chunk.
	progressEvery time.Duration
}

// NewDiskStore roots a store at base, creating it if needed. A leading '~'
// in base is expanded.
func NewDiskStore(base string, client *http.Client, log zerolog.Logger) (*DiskStore, error) {
	expanded, err := ExpandHome(base)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir base: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DiskStore{
		base:          abs,
		client:        client,
		log:           log.With().Str("component", "blob").Logger(),
		progressEvery: progressInterval,
	}, nil
}

func (s *DiskStore) BaseDir() string { return s.base }

func (s *DiskStore) Exists(path string) bool { return PathExists(path) }

func (s *DiskStore) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }

func (s *DiskStore) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *DiskStore) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (s *DiskStore) Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Size: fi.Size()}, nil
}

func (s *DiskStore) RemoveAll(path string) error { return os.RemoveAll(path) }

func (s *DiskStore) Probe(ctx context.Context, url string, headers map[string]string) (int64, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	return resp.ContentLength, resp.StatusCode, nil
}

func (s *DiskStore) Download(ctx context.Context, url, dest string, opt DownloadOptions) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range opt.Headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return resp.StatusCode, err
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return resp.StatusCode, err
	}
	pw := &progressWriter{
		total:    resp.ContentLength,
		every:    s.progressEvery,
		callback: opt.OnProgress,
	}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return resp.StatusCode, err
	}
	pw.flush()
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return resp.StatusCode, err
	}
	s.log.Debug().Str("url", url).Str("dest", dest).Int64("bytes", pw.written).Msg("download complete")
	return resp.StatusCode, nil
}

// progressWriter throttles progress callbacks to one per interval, plus a
// final flush at completion. Byte counts are monotonically non-decreasing.
type progressWriter struct {
	written  int64
	total    int64
	last     time.Time
	every    time.Duration
	callback func(types.Progress)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.callback != nil && time.Since(w.last) >= w.every {
		w.last = time.Now()
		w.callback(w.snapshot())
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	if w.callback != nil {
		w.callback(w.snapshot())
	}
}

func (w *progressWriter) snapshot() types.Progress {
	p := types.Progress{DownloadedBytes: w.written, TotalBytes: w.total}
	if w.total > 0 {
		p.PercentComplete = float64(w.written) / float64(w.total) * 100
	}
	return p
}
