// Package download fetches artifacts over plain HTTP.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// UserAgent is sent on every request; the open-data portal rejects Go's default.
const UserAgent = "Mozilla/5.0"

// Client downloads files with a single GET and no retries.
// It implements retrieval.Downloader.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a Client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", UserAgent)
	return &Client{http: c, logger: logger}
}

// Download writes the response body for rawURL to dst verbatim. Any non-2xx status
// or transport failure is reported as domain.ErrTransport and leaves dst untouched.
func (c *Client) Download(ctx context.Context, rawURL, dst string) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w: %w", rawURL, domain.ErrTransport, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("GET %s: status %d: %w", rawURL, res.StatusCode(), domain.ErrTransport)
	}

	body := res.Body()
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	c.logger.Debug("download complete", "url", rawURL, "path", dst, "bytes", len(body))
	return nil
}
