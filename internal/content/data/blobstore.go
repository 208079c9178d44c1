package data

import (
	"context"
	"io"
	"strings"

	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
	pkgminio "github.com/cartelera/signage-backend/internal/pkg/minio"
)

// MinIOBlobStore implements the engine's BlobStore port on a single
// bucket, mapping each stage namespace to an object-key prefix
// ("uploads/", "monitoring/", "mobile/"). One bucket keeps server-side
// copies between namespaces trivial.
type MinIOBlobStore struct {
	client *pkgminio.Client
	bucket string
	logger *logger.Logger
}

// NewMinIOBlobStore creates the blob store adapter
func NewMinIOBlobStore(client *pkgminio.Client, bucket string, lgr *logger.Logger) *MinIOBlobStore {
	if lgr == nil {
		lgr = logger.L()
	}
	return &MinIOBlobStore{
		client: client,
		bucket: bucket,
		logger: lgr,
	}
}

// EnsureBucket creates the backing bucket if needed; called at startup
func (s *MinIOBlobStore) EnsureBucket(ctx context.Context) error {
	return s.client.EnsureBucket(ctx, s.bucket)
}

// List enumerates the keys in a namespace, with the prefix stripped
func (s *MinIOBlobStore) List(ctx context.Context, namespace string) ([]string, error) {
	prefix := namespace + "/"

	objects, err := s.client.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, strings.TrimPrefix(obj.Key, prefix))
	}
	return keys, nil
}

// Exists reports whether a key is present in the namespace
func (s *MinIOBlobStore) Exists(ctx context.Context, namespace, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectName(namespace, key))
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Write stores bytes under a namespaced key
func (s *MinIOBlobStore) Write(ctx context.Context, namespace, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(namespace, key), body, size, pkgminio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Read opens a namespaced key for streaming
func (s *MinIOBlobStore) Read(ctx context.Context, namespace, key string) (io.ReadCloser, error) {
	name := objectName(namespace, key)

	// GetObject defers errors until the first read; stat up front so a
	// missing key surfaces before any bytes are served.
	if _, err := s.client.StatObject(ctx, s.bucket, name); err != nil {
		if pkgminio.IsNotFound(err) {
			return nil, biz.ErrBlobNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Copy performs a server-side copy between namespaces
func (s *MinIOBlobStore) Copy(ctx context.Context, srcNamespace, srcKey, dstNamespace, dstKey string) error {
	return s.client.CopyObject(ctx,
		s.bucket, objectName(srcNamespace, srcKey),
		s.bucket, objectName(dstNamespace, dstKey),
	)
}

// Delete removes a namespaced key, translating an absent object into
// the engine's ErrBlobNotFound so it can self-heal
func (s *MinIOBlobStore) Delete(ctx context.Context, namespace, key string) error {
	name := objectName(namespace, key)

	// RemoveObject succeeds on missing keys in S3 semantics, so probe
	// first to distinguish "already gone" from a real deletion.
	if _, err := s.client.StatObject(ctx, s.bucket, name); err != nil {
		if pkgminio.IsNotFound(err) {
			return biz.ErrBlobNotFound
		}
		return err
	}

	return s.client.RemoveObject(ctx, s.bucket, name)
}

func objectName(namespace, key string) string {
	return namespace + "/" + key
}
