package storage

import (
	"context"
	"io"
	"path"
	"strings"

	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for the given key.
	GetURL(ctx context.Context, key string) (string, error)

	// KeyFromURL maps a public URL produced by this storage back to its key.
	// ok is false for URLs the storage does not own.
	KeyFromURL(url string) (key string, ok bool)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// CleanKey normalizes a storage key and rejects keys that are empty or
// escape the storage root.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", apperrors.InvalidInput("storage key is required")
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(key, "..") {
		return "", apperrors.InvalidInput("invalid storage key: " + key)
	}
	return cleaned, nil
}

// KeyUnderPrefix strips prefix from url and returns the remaining key.
func KeyUnderPrefix(url, prefix string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if _, err := CleanKey(key); err != nil {
		return "", false
	}
	return key, true
}
