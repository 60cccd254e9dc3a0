package services

import (
	"fmt"
	"path"
	"strings"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func GetExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "application/pdf":
		return ".pdf", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			// "image/svg+xml" -> ".svg"
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}

// uploadName возвращает имя файла с расширением; если у клиента его нет, берём из Content-Type.
func uploadName(f *FileUpload) string {
	if path.Ext(f.Filename) != "" {
		return f.Filename
	}
	ext, err := GetExtensionFromContentType(f.ContentType)
	if err != nil {
		return f.Filename
	}
	return f.Filename + ext
}
