package extensions

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fora-sh/fora/internal/executor"
)

const (
	connectTimeout   = 15 * time.Second
	downloadTimeout  = 2 * time.Minute
	downloadAttempts = 3
	downloadRetryGap = 5 * time.Second
)

// Downloader fetches extension archives with bounded connect and total
// timeouts and a small retry budget. Anything other than a 2xx response
// is a hard failure for the item being downloaded.
type Downloader struct {
	client   *http.Client
	attempts int
	retryGap time.Duration
}

func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: downloadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		attempts: downloadAttempts,
		retryGap: downloadRetryGap,
	}
}

func (d *Downloader) Download(ctx context.Context, rawURL, token, dest string) error {
	return executor.Retry(d.attempts, d.retryGap, func() error {
		return d.fetch(ctx, rawURL, token, dest)
	})
}

func (d *Downloader) fetch(ctx context.Context, rawURL, token, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid download URL: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed: server returned %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create download target: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to save download: %w", err)
	}

	return f.Close()
}
