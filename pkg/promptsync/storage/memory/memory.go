package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// Backend is an in-memory implementation of the promptsync.BlobStore
// interface, used by tests and the default server configuration. Download
// URLs use a synthetic memory:// scheme since there is no server to serve
// them.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
	}
}

// Upload stores the payload in memory.
func (b *Backend) Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = object{data: data, contentType: contentType, updatedAt: time.Now().UTC()}
	return nil
}

// GetDownloadURL returns a synthetic URL for the stored payload.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", errors.New("object not found")
	}
	return "memory://" + objectKey, nil
}

// Download reads the payload back directly.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes the payload.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}
	delete(b.objects, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a payload in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*promptsync.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return &promptsync.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}
