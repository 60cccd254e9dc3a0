package services

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/Sovan7777/spardha-26/storage"
)

type fakeUploader struct {
	*storage.MemoryUploader
	UploadFn func(key string) error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{MemoryUploader: storage.NewMemoryUploader("https://files.spardha.test")}
}

func (f *fakeUploader) Upload(ctx context.Context, key string, contentType string, r io.Reader) (*storage.UploadResult, error) {
	if f.UploadFn != nil {
		if err := f.UploadFn(key); err != nil {
			return nil, err
		}
	}
	return f.MemoryUploader.Upload(ctx, key, contentType, r)
}

type publishedEvent struct {
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Payload: payload})
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func image(name string) *FileUpload {
	const body = "\x89PNG fake image"
	return &FileUpload{Filename: name, ContentType: "image/png", Size: int64(len(body)), Reader: strings.NewReader(body)}
}
