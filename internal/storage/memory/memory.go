package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/nahankar/shatika/internal/storage"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// fileEntry stores an uploaded file in memory.
type fileEntry struct {
	ContentType string
	Data        []byte
	URL         string
}

// Storage implements storage.Storage using an in-memory map. Used in
// development and tests.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

var _ storage.Storage = (*Storage)(nil)

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload reads the file into memory and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key, err := storage.CleanKey(input.Key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	url := fmt.Sprintf("%s/media/%s", s.baseURL, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = &fileEntry{
		ContentType: input.ContentType,
		Data:        buf.Bytes(),
		URL:         url,
	}

	return &storage.UploadResult{
		Key: key,
		URL: url,
	}, nil
}

// Delete removes a file from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return apperrors.NotFound("file", key)
	}

	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return "", apperrors.NotFound("file", key)
	}

	return entry.URL, nil
}

// KeyFromURL maps baseURL/media/key back to key.
func (s *Storage) KeyFromURL(url string) (string, bool) {
	return storage.KeyUnderPrefix(url, s.baseURL+"/media")
}

// Get returns the stored bytes and content type for key.
func (s *Storage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return nil, "", false
	}
	return entry.Data, entry.ContentType, true
}

// Len returns the number of stored files.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// ServeHTTP serves a stored file by key. Mount it with the /media/ prefix
// stripped from the request path.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data, contentType, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}
