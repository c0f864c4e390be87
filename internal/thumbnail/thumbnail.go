// Package thumbnail fetches preview images over HTTP for attaching to
// delivered files. Fetch failures are reported but never fatal; delivery
// proceeds without a preview.
package thumbnail

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"
)

const (
	FetchTimeout = 15 * time.Second

	// Some CDNs refuse requests without a browser-looking agent.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	fileMode = 0o644
)

// Fetcher downloads preview images to local files.
type Fetcher struct {
	client *resty.Client
	log    *zap.Logger
}

// NewFetcher creates a thumbnail fetcher.
func NewFetcher(log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New()
	client.SetTimeout(FetchTimeout)
	client.SetHeader("User-Agent", UserAgent)
	return &Fetcher{client: client, log: log}
}

// Close releases the underlying HTTP client.
func (f *Fetcher) Close() error {
	return f.client.Close()
}

// Download fetches the image at url into destPath. A non-2xx status or an
// empty body is an error; destPath is only created on success.
func (f *Fetcher) Download(ctx context.Context, url, destPath string) error {
	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	if res.StatusCode() != 200 {
		return fmt.Errorf("fetch thumbnail: status %d", res.StatusCode())
	}

	body := res.Bytes()
	if len(body) == 0 {
		return fmt.Errorf("fetch thumbnail: empty body")
	}

	if err := os.WriteFile(destPath, body, fileMode); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}

	f.log.Debug("thumbnail saved",
		zap.String("url", url),
		zap.Int("bytes", len(body)))
	return nil
}
