package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxFetchSize bounds downloads of external image references.
const DefaultMaxFetchSize = "25MB"

// Fetcher downloads images referenced by URL.
type Fetcher struct {
	client  *http.Client
	maxSize int64
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. maxSize is a human readable size such as
// "25MB" or "10 MiB"; empty uses DefaultMaxFetchSize.
func NewFetcher(client *http.Client, maxSize string, logger *slog.Logger) (*Fetcher, error) {
	if maxSize == "" {
		maxSize = DefaultMaxFetchSize
	}
	limit, err := humanize.ParseBytes(maxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max fetch size %q: %w", maxSize, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{client: client, maxSize: int64(limit), logger: logger}, nil
}

// MaxSize returns the download limit in bytes.
func (f *Fetcher) MaxSize() int64 {
	return f.maxSize
}

// Fetch downloads url and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}
	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("image at %s is %s, limit is %s",
			url, humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(f.maxSize)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("image at %s exceeds limit of %s", url, humanize.Bytes(uint64(f.maxSize)))
	}

	f.log().Debug("fetched image",
		"url", url,
		"size", humanize.Bytes(uint64(len(data))),
		"elapsed", time.Since(start),
	)
	return data, nil
}

func (f *Fetcher) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}
