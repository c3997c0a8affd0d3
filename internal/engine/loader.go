package engine

import (
	"context"
	"errors"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
)

// GCSLoader loads template source text from the Blob Store Gateway, URL by
// URL, returning ErrTemplateNotFound when the object is absent.
type GCSLoader struct {
	DownloadFromURL func(ctx context.Context, url string) ([]byte, error)
}

// NewGCSLoader builds a Loader backed by a download-by-URL function
// (gcs.HTTPFetcher.DownloadFromURL in cmd/stacforge-worker).
func NewGCSLoader(download func(ctx context.Context, url string) ([]byte, error)) *GCSLoader {
	return &GCSLoader{DownloadFromURL: download}
}

func (l *GCSLoader) Load(ctx context.Context, url string) (string, error) {
	b, err := l.DownloadFromURL(ctx, url)
	if err != nil {
		if gcs.IsNotExist(err) {
			return "", ErrTemplateNotFound
		}
		return "", err
	}
	return string(b), nil
}

// IsNotFound reports whether err is (or wraps) ErrTemplateNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
