package engine

import (
	"bytes"
	"context"
	"io"
	"strings"
)

// openVSI resolves a raster URL to an io.ReaderAt for
// get_rasterio_dataset: file:// URLs are rejected and local files are not
// opened; every other URL (container-hosted blobs, signed HTTP(S) URLs) is
// fetched eagerly and whole through the Fetcher (the Go equivalent of
// GDAL's /vsiaz/ and /vsicurl/ prefixes, without the
// streaming-range-request optimization those provide).
func (e *Environment) openVSI(url string) (io.ReaderAt, io.Closer, error) {
	if strings.HasPrefix(url, "file://") {
		return nil, nil, errUnsupportedFileVSI
	}
	b, err := e.fetcher.FetchBytes(context.Background(), url)
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(b), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var errUnsupportedFileVSI = vsiError("engine: local file:// rasters are not supported; store scenes in object storage")

type vsiError string

func (e vsiError) Error() string { return string(e) }
