package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Sovan7777/spardha-26/utils"
	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ObjectKey builds registrations/<event-slug>/<uuid><ext> for an uploaded file.
func ObjectKey(event, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("registrations/%s/%s%s", utils.Slugify(event), uuid.NewString(), ext)
}
