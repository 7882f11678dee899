package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nahankar/shatika/internal/storage"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// DefaultBaseURL is the path prefix local files are served under.
const DefaultBaseURL = "/uploads"

// Storage implements storage.Storage on the local filesystem.
type Storage struct {
	dir     string
	baseURL string
}

var _ storage.Storage = (*Storage)(nil)

// New creates a local storage rooted at dir, creating it if needed.
// Files are addressed publicly as baseURL/key.
func New(dir, baseURL string) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("local storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Storage{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir returns the root directory, used to serve files over HTTP.
func (s *Storage) Dir() string {
	return s.dir
}

// Upload writes the file through a temp file so readers never see a
// partial object.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key, err := storage.CleanKey(input.Key)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, input.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("move upload into place: %w", err)
	}

	return &storage.UploadResult{
		Key: key,
		URL: s.baseURL + "/" + key,
	}, nil
}

// Delete removes the file for key.
func (s *Storage) Delete(_ context.Context, key string) error {
	key, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NotFound("file", key)
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// GetURL returns the URL for key if the file exists.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.NotFound("file", key)
		}
		return "", fmt.Errorf("stat file: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// KeyFromURL maps baseURL/key back to key.
func (s *Storage) KeyFromURL(url string) (string, bool) {
	return storage.KeyUnderPrefix(url, s.baseURL)
}
