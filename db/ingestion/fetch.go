package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"fe-catalog/internal/errors"
)

// Feed paths below the prices base URL
const (
	OSFeedPath      = "/prices/pricing-os.csv"
	ComputeFeedPath = "/prices/pricing-compute.csv"
)

// Fetcher downloads price feeds over HTTP(S), or from disk for file:// URLs
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a fetcher bounding each download by timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Open starts the download of url. The body is BOM stripped and must be closed.
func (f *Fetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.IO("invalid feed URL "+url, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.IO("failed to fetch "+url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.New(errors.TypeIO, fmt.Sprintf("failed to fetch %s: status %d", url, resp.StatusCode)).
			WithContext("status", resp.StatusCode)
	}

	return &feedBody{
		Reader: transform.NewReader(resp.Body, unicode.BOMOverride(unicode.UTF8.NewDecoder())),
		body:   resp.Body,
	}, nil
}

type feedBody struct {
	io.Reader
	body io.Closer
}

func (b *feedBody) Close() error {
	return b.body.Close()
}
