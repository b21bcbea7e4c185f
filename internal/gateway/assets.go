package gateway

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// maxImageBody bounds the size of a downloaded image.
const maxImageBody = 5 << 20

// AssetOptions configures an AssetClient.
type AssetOptions struct {
	Timeout time.Duration
	Retry   int
}

// AssetClient downloads and decodes images such as repository logos.
type AssetClient struct {
	http   *http.Client
	retry  int
	logger *slog.Logger
}

// NewAssetClient creates a client with dial, TLS and overall timeouts.
func NewAssetClient(opts AssetOptions, logger *slog.Logger) *AssetClient {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return &AssetClient{
		http:   &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry:  opts.Retry,
		logger: logger,
	}
}

// LoadImage downloads rawURL and decodes it as PNG, JPEG or GIF.
// Failed attempts are retried with a linear backoff.
func (c *AssetClient) LoadImage(ctx context.Context, rawURL string) (image.Image, error) {
	var lastErr error
	for i := 0; i <= c.retry; i++ {
		img, err := c.loadOnce(ctx, rawURL)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if i == c.retry {
			break
		}
		c.logger.Debug("Retrying image download", "url", rawURL, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (c *AssetClient) loadOnce(ctx context.Context, rawURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: http status: %s", resp.Status)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBody))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
