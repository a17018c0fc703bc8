package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// MinArchiveSize is the liveness floor for downloaded archives. A
// truncated feed redirect or an HTML error page is far below it; it is
// not a cryptographic guarantee.
const MinArchiveSize = 1 << 20 // 1 MB

// DownloadProgress reports the state of a running download.
type DownloadProgress struct {
	TotalBytes int64 // 0 when the server sends no length
	Downloaded int64
}

// ProgressFunc receives periodic download progress updates.
type ProgressFunc func(DownloadProgress)

// DownloadResult describes a completed download.
type DownloadResult struct {
	Path     string
	Size     int64
	Checksum string // SHA-256, hex
}

// Download fetches url into destPath and returns the byte count.
// Used by callers outside the catalogue (the launcher installer).
func (c *Client) Download(ctx context.Context, url, destPath string) (int64, error) {
	result, err := c.download(ctx, url, destPath, nil)
	if err != nil {
		return 0, err
	}
	return result.Size, nil
}

// download fetches url into destPath atomically (temp file + rename),
// hashing as it copies.
func (c *Client) download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading archive: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: archive download returned %s", domain.ErrNetwork, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("creating download file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath)
	}()

	hasher := sha256.New()
	reader := &progressReader{
		reader:     resp.Body,
		totalBytes: resp.ContentLength,
		progressFn: progressFn,
	}

	written, err := io.Copy(file, io.TeeReader(reader, hasher))
	if err != nil {
		return nil, fmt.Errorf("downloading archive: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing download file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("committing download: %w", err)
	}

	return &DownloadResult{
		Path:     destPath,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// progressReader wraps an io.Reader to report download progress.
type progressReader struct {
	reader     io.Reader
	totalBytes int64
	downloaded int64
	progressFn ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.progressFn != nil {
			r.progressFn(DownloadProgress{
				TotalBytes: r.totalBytes,
				Downloaded: r.downloaded,
			})
		}
	}
	return n, err
}
