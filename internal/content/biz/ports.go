package biz

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned by BlobStore implementations when the
// requested key does not exist in the namespace.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the key-addressed binary storage the engine calls into.
// Namespaces correspond to pipeline stages.
type BlobStore interface {
	// List enumerates all keys in a namespace
	List(ctx context.Context, namespace string) ([]string, error)
	// Exists reports whether a key is present
	Exists(ctx context.Context, namespace, key string) (bool, error)
	// Write stores bytes under a key
	Write(ctx context.Context, namespace, key string, body io.Reader, size int64, contentType string) error
	// Read opens a key for streaming
	Read(ctx context.Context, namespace, key string) (io.ReadCloser, error)
	// Copy duplicates a key into another namespace without reading it
	// back through the process
	Copy(ctx context.Context, srcNamespace, srcKey, dstNamespace, dstKey string) error
	// Delete removes a key; returns ErrBlobNotFound if it was already gone
	Delete(ctx context.Context, namespace, key string) error
}

// Publisher pushes an event to every connected observer of a topic on a
// best-effort, fire-and-forget basis. The engine never sees transport
// connections.
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}
