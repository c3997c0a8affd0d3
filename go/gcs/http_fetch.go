package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/microsoft-planetary-computer-pro/go/httputils"
)

// HTTPFetcher satisfies C1's download_from_url operation and the
// engine.Fetcher capability the template engine's get_text/get_xml/
// get_json/get_rasterio_dataset helpers need: every canonical blob URL
// this pipeline produces (optionally carrying a signed delegation
// credential in its query string) is readable with a plain HTTPS GET, so
// no per-backend storage client is needed here, only a retrying HTTP
// client.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds a fetcher using the fixed 3-retry, 2-second-
// interval policy spec.md §4.1 requires for gateway downloads.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Transport: httputils.NewConfiguredBackOffTransport(httputils.NewFixedBackOffConfig(), http.DefaultTransport),
		},
	}
}

// FetchBytes downloads the entire body at url.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gcs: download %s: %w", url, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gcs: download %s: %w", url, err)
	}
	defer ReadAndClose(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, NewNotExistError(url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gcs: download %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// FetchText downloads url and decodes it as UTF-8 text.
func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	b, err := f.FetchBytes(ctx, url)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DownloadFromURL adapts FetchBytes to internal/engine.GCSLoader's
// DownloadFromURL hook, used to fetch GeoTemplate sources.
func (f *HTTPFetcher) DownloadFromURL(ctx context.Context, url string) ([]byte, error) {
	return f.FetchBytes(ctx, url)
}
