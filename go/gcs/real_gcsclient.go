package gcs

import (
	"context"
	"errors"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// isTransientStorageErr reports whether err is one of the transient
// statuses spec.md §4.1 requires upload/list/download to retry
// automatically: 408, 429, or any 5xx. Used by WithWriteFile (gcs.go) as
// well as ListFiles/GetFileContents below.
func isTransientStorageErr(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 408 || gerr.Code == 429 || gerr.Code >= 500
	}
	return false
}

// StorageGCSClient adapts *storage.Client to GCSClient.
type StorageGCSClient struct {
	bucket *storage.BucketHandle
	name   string
}

// NewStorageGCSClient wraps an existing *storage.Client, scoping it to bucket.
func NewStorageGCSClient(client *storage.Client, bucket string) *StorageGCSClient {
	return &StorageGCSClient{bucket: client.Bucket(bucket), name: bucket}
}

func (c *StorageGCSClient) Bucket() string { return c.name }

func (c *StorageGCSClient) FileReader(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := c.bucket.Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, NewNotExistError(path)
	}
	return r, err
}

func (c *StorageGCSClient) FileWriter(ctx context.Context, path string, opts FileWriteOptions) io.WriteCloser {
	w := c.bucket.Object(path).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.ContentEncoding = opts.ContentEncoding
	return w
}

func (c *StorageGCSClient) DoesFileExist(ctx context.Context, path string) (bool, error) {
	_, err := c.bucket.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *StorageGCSClient) GetFileContents(ctx context.Context, path string) ([]byte, error) {
	var contents []byte
	err := backoff.Retry(func() error {
		r, err := c.FileReader(ctx, path)
		if err != nil {
			if !isTransientStorageErr(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer ReadAndClose(r)
		contents, err = io.ReadAll(r)
		if err != nil && !isTransientStorageErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), 3), ctx))
	return contents, err
}

// ReadAndClose drains and closes r, discarding errors. Mirrors the
// go/httputils helper of the same name, applied here to object readers
// instead of HTTP response bodies.
func ReadAndClose(r io.ReadCloser) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, r)
	_ = r.Close()
}

func (c *StorageGCSClient) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := backoff.Retry(func() error {
		out = nil
		it := c.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				if !isTransientStorageErr(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			out = append(out, attrs.Name)
		}
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), 3), ctx))
	return out, err
}

func (c *StorageGCSClient) DeleteFile(ctx context.Context, path string) error {
	err := c.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// DelegationCredential is a scoped, expiring credential granting access to a
// single container, the GCS analogue of an Azure user-delegation SAS token.
type DelegationCredential struct {
	URL        string
	Start      time.Time
	Expiry     time.Time
	Permission string
}

// SignedURLSigner abstracts storage.BucketHandle.SignedURL so that
// GenerateContainerDelegationCredential is testable without a real service
// account key.
type SignedURLSigner interface {
	SignedURL(object string, opts *storage.SignedURLOptions) (string, error)
}

// GenerateContainerDelegationCredential mints a time-boxed, read/write/list
// scoped signed URL for the named container, backdated 5 minutes to absorb
// clock skew between this process and the storage backend, per the
// ingestion-source refresh contract in spec.md.
func GenerateContainerDelegationCredential(signer SignedURLSigner, objectPrefix string, ttl time.Duration, now time.Time) (*DelegationCredential, error) {
	start := now.Add(-5 * time.Minute)
	expiry := now.Add(ttl)
	url, err := signer.SignedURL(objectPrefix, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expiry,
	})
	if err != nil {
		return nil, err
	}
	return &DelegationCredential{
		URL:        url,
		Start:      start,
		Expiry:     expiry,
		Permission: "racwl",
	}, nil
}

// EnsureContainer creates bucket if it does not already exist, matching the
// storage_client.ensure_container idempotent-create semantics.
func EnsureContainer(ctx context.Context, client *storage.Client, projectID, bucket, location string) error {
	b := client.Bucket(bucket)
	_, err := b.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	return backoff.Retry(func() error {
		return b.Create(ctx, projectID, &storage.BucketAttrs{Location: location})
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), 3))
}
