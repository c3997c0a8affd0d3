// Package gcs provides a thin gateway over Google Cloud Storage used as the
// blob backing store for scene discovery, rendered-item persistence, and
// collection manifest upload.
package gcs

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FileWriteOptions control metadata applied to an object written via
// GCSClient.FileWriter.
type FileWriteOptions struct {
	// ContentType is the MIME type stored with the object, e.g. "application/json".
	ContentType string

	// ContentEncoding is the Content-Encoding stored with the object, e.g. "gzip".
	ContentEncoding string
}

// FileWriteOptionsDefaults is the shorthand used throughout the pipeline
// for untyped blobs: content type application/octet-stream, no encoding.
var FileWriteOptionsDefaults = FileWriteOptions{ContentType: "application/octet-stream"}

// GCSClient is the gateway's dependency surface, small enough that a real
// implementation (backed by cloud.google.com/go/storage) and an in-memory
// fake (mem_gcsclient) can both satisfy it without either one leaking
// provider-specific types into callers.
type GCSClient interface {
	// FileReader opens path for reading. Returns an error satisfying
	// IsNotExist(err) if the object does not exist.
	FileReader(ctx context.Context, path string) (io.ReadCloser, error)

	// FileWriter returns a writer for path. The object is only visible to
	// readers once the returned writer is Close()d without error.
	FileWriter(ctx context.Context, path string, opts FileWriteOptions) io.WriteCloser

	// DoesFileExist reports whether path currently exists.
	DoesFileExist(ctx context.Context, path string) (bool, error)

	// GetFileContents reads the entirety of path into memory.
	GetFileContents(ctx context.Context, path string) ([]byte, error)

	// ListFiles lists every object whose path starts with prefix.
	ListFiles(ctx context.Context, prefix string) ([]string, error)

	// DeleteFile removes path. Deleting a path that does not exist is not
	// an error.
	DeleteFile(ctx context.Context, path string) error

	// Bucket returns the name of the bucket this client is scoped to.
	Bucket() string
}

// notExistError is returned by FileReader/GetFileContents implementations
// when the requested object is absent.
type notExistError struct {
	path string
}

func (e *notExistError) Error() string { return "gcs: object does not exist: " + e.path }

// NewNotExistError constructs the sentinel error IsNotExist recognizes.
func NewNotExistError(path string) error { return &notExistError{path: path} }

// IsNotExist reports whether err indicates a missing object, mirroring the
// os.IsNotExist convention so callers can branch on absence vs. failure.
func IsNotExist(err error) bool {
	_, ok := err.(*notExistError)
	return ok
}

// uploadRetryPolicy is the fixed 3-retry, 2-second-interval policy spec.md
// §4.1 mandates for upload (as well as list and download, applied at the
// real client in real_gcsclient.go): any transient failure (408, 429, or
// 5xx) is retried; anything else propagates on the first attempt.
func uploadRetryPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), 3), ctx)
}

// WithWriteFile opens a writer for path, invokes write with it, and closes
// the writer, returning write's error or else the close error. When write
// fails, the writer's context is canceled and the writer is not closed, so
// no object is committed. The whole attempt is retried per
// uploadRetryPolicy when the failure is transient. The context passed to
// FileWriter is always canceled before WithWriteFile returns, so
// implementations must not retain it past Close.
func WithWriteFile(gcsClient GCSClient, ctx context.Context, path string, opts FileWriteOptions, write func(io.Writer) error) error {
	return backoff.Retry(func() error {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		w := gcsClient.FileWriter(wctx, path, opts)
		err := write(w)
		if err != nil {
			cancel()
		} else {
			err = w.Close()
		}
		if err != nil && !isTransientStorageErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, uploadRetryPolicy(ctx))
}

// WithWriteFileGzip is WithWriteFile with ContentEncoding set to "gzip".
// Callers are responsible for actually gzip-compressing what they write;
// this only sets the object metadata, matching the teacher's split between
// transport-level compression and storage metadata.
func WithWriteFileGzip(gcsClient GCSClient, ctx context.Context, path string, write func(io.Writer) error) error {
	return WithWriteFile(gcsClient, ctx, path, FileWriteOptions{ContentEncoding: "gzip"}, write)
}
