package sortify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// LoadOpts configures loading of a source image.
type LoadOpts struct {
	MaxBytes int64         // max bytes read from a URL source (default: 16MB)
	Timeout  time.Duration // per-request timeout for URL sources (default: 10s)
}

const (
	defaultSourceMaxBytes = 16 << 20
	defaultSourceTimeout  = 10 * time.Second
)

// Load reads raw image bytes from ref, a local file path or an http(s) URL.
// Any failure is a *PreprocessError: the source could not be read, the remote
// service was never involved, and no cache entry is written.
func (cfg *Config) Load(ctx context.Context, ref string, opts LoadOpts) ([]byte, error) {
	cfg.defaults()

	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultSourceMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSourceTimeout
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return cfg.fetchSource(ctx, ref, opts)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, &PreprocessError{Ref: ref, Err: err}
	}
	return data, nil
}

func (cfg *Config) fetchSource(ctx context.Context, ref string, opts LoadOpts) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &PreprocessError{Ref: ref, Err: err}
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &PreprocessError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &PreprocessError{Ref: ref, Err: fmt.Errorf("source fetch status %d", resp.StatusCode)}
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" → "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, &PreprocessError{Ref: ref, Err: fmt.Errorf("source is not an image: %s", ct)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes))
	if err != nil {
		return nil, &PreprocessError{Ref: ref, Err: err}
	}
	return data, nil
}

// imageExtensions are the source file types the batch pipeline accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsImageRef reports whether ref names a supported image file type.
func IsImageRef(ref string) bool {
	name := ref
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	}
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return false
	}
	return imageExtensions[strings.ToLower(name[dot:])]
}
