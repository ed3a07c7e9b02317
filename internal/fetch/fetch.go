// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxArtifactBytes is the default upper bound on a downloaded or extracted
// artifact (2 GB). Pipeline binaries stay well under it; callers fetching
// mapping reference archives, which run to tens of gigabytes, lift the cap
// with WithMaxDownloadBytes.
const maxArtifactBytes = int64(2) << 30

// ErrSizeLimitExceeded is returned when a download or extracted archive
// member is larger than the configured cap. The partial file is removed; a
// truncated artifact must never look like a successful fetch.
var ErrSizeLimitExceeded = errors.New("size limit exceeded")

type (
	// Client downloads artifacts over HTTP.
	Client struct {
		httpClient *http.Client
		maxBytes   int64
		cacheDir   string
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)

	// HTTPStatusError is returned when the server answers a download request
	// with a non-success status.
	HTTPStatusError struct {
		URL        string
		StatusCode int
	}
)

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d fetching %s", e.StatusCode, e.URL)
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithMaxDownloadBytes overrides the download size cap. A zero or negative
// limit disables the cap.
func WithMaxDownloadBytes(n int64) ClientOption {
	return func(cl *Client) {
		cl.maxBytes = n
	}
}

// WithCacheDir makes downloads reusable across runs: fetched payloads are
// stored under dir keyed by URL, and later downloads of the same URL are
// served from the cache instead of the network. Callers still own the
// returned file; cache hits hand out a copy.
func WithCacheDir(dir string) ClientOption {
	return func(cl *Client) {
		cl.cacheDir = dir
	}
}

// NewClient creates a download client. The default HTTP client has no overall
// timeout: artifact downloads are bounded by the caller's context.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		maxBytes: maxArtifactBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches url into a temp file under dir and returns the file path
// together with the SHA-256 of its contents. The download is a single
// blocking call; any network or HTTP-status failure is final, and a payload
// over the size cap fails with ErrSizeLimitExceeded.
func (c *Client) Download(ctx context.Context, url, dir string) (string, string, error) {
	if c.cacheDir != "" {
		if path, sum, ok := c.fromCache(url, dir); ok {
			return path, sum, nil
		}
	}

	path, sum, err := c.fetch(ctx, url, dir)
	if err != nil {
		return "", "", err
	}

	if c.cacheDir != "" {
		// Best effort: a failed cache write only costs the next run a
		// re-download.
		c.storeInCache(url, path)
	}
	return path, sum, nil
}

func (c *Client) fetch(ctx context.Context, url, dir string) (_ string, _ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", "", &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(dir, "pipstage-artifact-*")
	if err != nil {
		return "", "", fmt.Errorf("creating temp file: %w", err)
	}

	// Read one byte past the cap so an at-the-limit payload is
	// distinguishable from an oversized one.
	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}

	h := sha256.New()
	var written int64
	if copyErr := func() (copyErr error) {
		defer func() {
			if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
				copyErr = closeErr
			}
		}()
		written, copyErr = io.Copy(io.MultiWriter(tmp, h), body)
		return copyErr
	}(); copyErr != nil {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("writing download: %w", copyErr)
	}

	if c.maxBytes > 0 && written > c.maxBytes {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("%w: %s is larger than %d bytes", ErrSizeLimitExceeded, url, c.maxBytes)
	}

	return tmp.Name(), hex.EncodeToString(h.Sum(nil)), nil
}

// fromCache copies the cached payload for url into a temp file under dir.
func (c *Client) fromCache(url, dir string) (string, string, bool) {
	cached := filepath.Join(c.cacheDir, cacheKey(url))
	if _, err := os.Stat(cached); err != nil {
		return "", "", false
	}

	tmp, err := os.CreateTemp(dir, "pipstage-artifact-*")
	if err != nil {
		return "", "", false
	}
	_ = tmp.Close()

	if err := copyFile(cached, tmp.Name()); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", false
	}
	sum, err := FileSHA256(tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", false
	}
	return tmp.Name(), sum, true
}

// storeInCache copies a freshly downloaded payload into the cache, staging
// through a temp name so a concurrent reader never sees a partial entry.
func (c *Client) storeInCache(url, src string) {
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return
	}

	dest := filepath.Join(c.cacheDir, cacheKey(url))
	staging := dest + ".partial"
	if err := copyFile(src, staging); err != nil {
		_ = os.Remove(staging)
		return
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.Remove(staging)
	}
}

// cacheKey derives a stable cache filename from url: a short URL hash plus
// the payload's base name for operator readability.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(sum[:])[:16]

	trimmed, _, _ := strings.Cut(url, "?")
	if base := path.Base(trimmed); base != "" && base != "." && base != "/" {
		key += "-" + base
	}
	return key
}

// ContentLength probes url with a HEAD request and returns the advertised
// body size. Servers that omit Content-Length get an error; callers that
// need the exact size must download instead.
func (c *Client) ContentLength(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("probing %s: server did not advertise a content length", url)
	}
	return resp.ContentLength, nil
}

// FileSHA256 returns the hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
