// Package memory provides an in-memory implementation of the
// speaktex.BlobStore interface for tests and local development.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/speaktex/speaktex/pkg/speaktex"
)

// Backend is an in-memory implementation of the speaktex.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// GetUploadURL returns a synthetic memory:// URL. There is no server behind
// it; local clients upload through UploadWithParams instead.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey, contentType string) (string, error) {
	return "memory://" + objectKey, nil
}

// GetDownloadURL returns a synthetic memory:// URL
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey, downloadFilename string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", speaktex.ErrObjectNotFound
	}
	return "memory://" + objectKey, nil
}

// Upload writes content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, speaktex.UploadParams{
		ObjectKey: objectKey,
		MimeType:  "application/octet-stream",
	})
}

// UploadWithParams writes content with an explicit content type
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params speaktex.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	if params.MimeType != "" {
		b.mimeTypes[params.ObjectKey] = params.MimeType
	}
	return nil
}

// Download reads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, speaktex.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether an object is present at the key
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists, nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return speaktex.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	return nil
}

// MimeType returns the stored content type for a key, for tests.
func (b *Backend) MimeType(objectKey string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mimeTypes[objectKey]
}
