// Package refimage downloads stored model-answer images and shrinks them
// for inclusion in a vision model request.
package refimage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/daringdolphin/chemcheck/internal/imageproc"
)

// DownloadTimeout bounds each individual image download.
const DownloadTimeout = 15 * time.Second

// maxDownloadBytes caps how much of a response body is read.
const maxDownloadBytes = 20 * 1024 * 1024

// Fetcher downloads and optimizes reference images.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. A nil client uses a default with the download
// timeout applied per request.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client}
}

// FetchAndOptimize resolves up to limit reference image URLs into inline
// JPEG data URLs, downscaled to maxWidth and re-encoded at quality. A
// reference that fails to download or optimize is dropped from the output;
// partial reference sets are acceptable and never an error. Output order
// follows input order.
func (f *Fetcher) FetchAndOptimize(ctx context.Context, urls []string, limit, maxWidth, quality int) []string {
	if limit < len(urls) {
		slog.Info("limiting reference images", "available", len(urls), "limit", limit)
		urls = urls[:limit]
	}

	// Downloads are independent, so run them concurrently and restore
	// order by index afterwards.
	results := make([]string, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		i, u := i, u
		wg.Add(1)
		go func() {
			defer wg.Done()
			dataURL, err := f.fetchOne(ctx, u, maxWidth, quality)
			if err != nil {
				slog.Warn("skipping reference image", "url", u, "error", err)
				return
			}
			results[i] = dataURL
		}()
	}
	wg.Wait()

	optimized := make([]string, 0, len(urls))
	for _, r := range results {
		if r != "" {
			optimized = append(optimized, r)
		}
	}
	slog.Info("processed reference images", "ok", len(optimized), "total", len(urls))
	return optimized
}

func (f *Fetcher) fetchOne(ctx context.Context, url string, maxWidth, quality int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("not an image: content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	// Downscale wide images; never upscale.
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	return imageproc.DataURL(buf.Bytes(), "image/jpeg"), nil
}
