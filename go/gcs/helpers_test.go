package gcs_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs/mem_gcsclient"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// captureFileWriterGCSClient captures FileWriter args for TestWithWriteFile* and
// TestWithWriteFileGzip*.
type captureFileWriterGCSClient struct {
	*mem_gcsclient.MemoryGCSClient
	fileWriterCtx  context.Context
	fileWriterOpts gcs.FileWriteOptions
}

func (c *captureFileWriterGCSClient) FileWriter(ctx context.Context, path string, opts gcs.FileWriteOptions) io.WriteCloser {
	c.fileWriterCtx = ctx
	c.fileWriterOpts = opts
	return c.MemoryGCSClient.FileWriter(ctx, path, opts)
}

func TestWithWriteFileSimple(t *testing.T) {

	c := &captureFileWriterGCSClient{
		MemoryGCSClient: mem_gcsclient.New("compositions"),
	}

	ctx := context.Background()
	opts := gcs.FileWriteOptions{
		ContentType: "text/plain",
	}
	const path = "story"
	const contents = "Once upon a time..."
	require.NoError(t, gcs.WithWriteFile(c, ctx, path, opts, func(w io.Writer) error {
		_, err := w.Write([]byte(contents))
		return err
	}))
	// The context should be canceled.
	require.Equal(t, context.Canceled, c.fileWriterCtx.Err())
	require.Equal(t, opts, c.fileWriterOpts)
	actualContents, err := c.GetFileContents(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte(contents), actualContents)
}

func TestWithWriteFileError(t *testing.T) {

	c := &captureFileWriterGCSClient{
		MemoryGCSClient: mem_gcsclient.New("compositions"),
	}

	ctx := context.Background()
	opts := gcs.FileWriteOptions{
		ContentType: "text/plain",
	}
	const path = "the-neverstarting-story"
	err := errors.New("I can't remember how it starts.")
	require.Equal(t, gcs.WithWriteFile(c, ctx, path, opts, func(w io.Writer) error {
		return err
	}), err)
	// The context should be canceled.
	require.Equal(t, context.Canceled, c.fileWriterCtx.Err())
	require.Equal(t, opts, c.fileWriterOpts)
	exists, err := c.DoesFileExist(ctx, path)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestWithWriteFileGzipSimple(t *testing.T) {

	c := &captureFileWriterGCSClient{
		MemoryGCSClient: mem_gcsclient.New("compositions"),
	}

	ctx := context.Background()
	const path = "condensible-story"
	const contents = "So like there was like this one time that I was like totally like..."
	require.NoError(t, gcs.WithWriteFileGzip(c, ctx, path, func(w io.Writer) error {
		_, err := w.Write([]byte(contents))
		return err
	}))
	// The context should be canceled.
	require.Equal(t, context.Canceled, c.fileWriterCtx.Err())
	require.Equal(t, gcs.FileWriteOptions{
		ContentEncoding: "gzip",
	}, c.fileWriterOpts)
	actualContents, err := c.GetFileContents(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte(contents), actualContents)
}

// flakyWriter fails Close() with a transient error a fixed number of times
// before succeeding, to exercise WithWriteFile's upload retry policy.
type flakyWriter struct {
	io.Writer
	failures *int
}

func (w *flakyWriter) Write(p []byte) (int, error) { return w.Writer.Write(p) }

func (w *flakyWriter) Close() error {
	if *w.failures > 0 {
		*w.failures--
		return &googleapi.Error{Code: 503, Message: "backend unavailable"}
	}
	return w.Writer.(io.Closer).Close()
}

// flakyGCSClient wraps MemoryGCSClient but fails the first n FileWriter
// closes with a transient error.
type flakyGCSClient struct {
	*mem_gcsclient.MemoryGCSClient
	failures int
}

func (c *flakyGCSClient) FileWriter(ctx context.Context, path string, opts gcs.FileWriteOptions) io.WriteCloser {
	return &flakyWriter{Writer: c.MemoryGCSClient.FileWriter(ctx, path, opts), failures: &c.failures}
}

func TestWithWriteFileRetriesTransientFailure(t *testing.T) {
	c := &flakyGCSClient{MemoryGCSClient: mem_gcsclient.New("compositions"), failures: 2}
	ctx := context.Background()
	const path = "retried-story"
	const contents = "eventually told"
	require.NoError(t, gcs.WithWriteFile(c, ctx, path, gcs.FileWriteOptionsDefaults, func(w io.Writer) error {
		_, err := w.Write([]byte(contents))
		return err
	}))
	require.Equal(t, 0, c.failures)
	actual, err := c.GetFileContents(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte(contents), actual)
}

func TestWithWriteFileDoesNotRetryPermanentFailure(t *testing.T) {
	c := &flakyGCSClient{MemoryGCSClient: mem_gcsclient.New("compositions"), failures: 0}
	ctx := context.Background()
	permanent := errors.New("permanent failure")
	err := gcs.WithWriteFile(c, ctx, "unwritable-story", gcs.FileWriteOptionsDefaults, func(w io.Writer) error {
		return permanent
	})
	require.Equal(t, permanent, err)
}
