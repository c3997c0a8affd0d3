// Package mem_gcsclient provides an in-memory gcs.GCSClient fake for tests,
// grounded on the teacher's equivalent package of the same name.
package mem_gcsclient

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
)

// MemoryGCSClient is a gcs.GCSClient backed by an in-process map, safe for
// concurrent use. It never talks to a real GCS bucket, so tests that embed
// it run without network access or credentials.
type MemoryGCSClient struct {
	mtx    sync.Mutex
	bucket string
	files  map[string][]byte
}

// New returns a MemoryGCSClient scoped to the given (fake) bucket name.
func New(bucket string) *MemoryGCSClient {
	return &MemoryGCSClient{
		bucket: bucket,
		files:  map[string][]byte{},
	}
}

// NewMemoryGCSClient is an alias of New kept for the vintage of callers that
// spell the constructor out in full.
func NewMemoryGCSClient(bucket string) *MemoryGCSClient {
	return New(bucket)
}

func (m *MemoryGCSClient) Bucket() string { return m.bucket }

func (m *MemoryGCSClient) FileReader(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	contents, ok := m.files[path]
	if !ok {
		return nil, gcs.NewNotExistError(path)
	}
	return io.NopCloser(bytes.NewReader(contents)), nil
}

type memWriter struct {
	client *MemoryGCSClient
	path   string
	buf    bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.client.mtx.Lock()
	defer w.client.mtx.Unlock()
	w.client.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

func (m *MemoryGCSClient) FileWriter(ctx context.Context, path string, opts gcs.FileWriteOptions) io.WriteCloser {
	return &memWriter{client: m, path: path}
}

func (m *MemoryGCSClient) DoesFileExist(ctx context.Context, path string) (bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *MemoryGCSClient) GetFileContents(ctx context.Context, path string) ([]byte, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	contents, ok := m.files[path]
	if !ok {
		return nil, gcs.NewNotExistError(path)
	}
	return append([]byte(nil), contents...), nil
}

func (m *MemoryGCSClient) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	var out []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryGCSClient) DeleteFile(ctx context.Context, path string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.files, path)
	return nil
}
