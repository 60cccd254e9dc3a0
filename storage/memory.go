package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryObject is a stored upload held by MemoryUploader.
type MemoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryUploader keeps uploads in memory. It backs local runs without R2 credentials.
type MemoryUploader struct {
	mu            sync.Mutex
	objects       map[string]MemoryObject
	publicBaseURL string
}

func NewMemoryUploader(publicBaseURL string) *MemoryUploader {
	return &MemoryUploader{objects: make(map[string]MemoryObject), publicBaseURL: publicBaseURL}
}

func (u *MemoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read upload (key: %s): %w", key, err)
	}

	u.mu.Lock()
	u.objects[key] = MemoryObject{ContentType: contentType, Data: buf.Bytes()}
	u.mu.Unlock()

	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *MemoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	delete(u.objects, key)
	u.mu.Unlock()
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	if u.publicBaseURL == "" {
		return key
	}
	return publicURL(u.publicBaseURL, key)
}

func (u *MemoryUploader) Object(key string) (MemoryObject, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	obj, ok := u.objects[key]
	return obj, ok
}

func (u *MemoryUploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}
