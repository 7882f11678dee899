package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/storage"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// MediaService validates uploaded files and writes them to storage.
type MediaService struct {
	storage  storage.Storage
	maxBytes int64
	metrics  *Metrics
	logger   *slog.Logger
}

// NewMediaService creates a new media service. A non-positive maxBytes
// uses domain.MaxUploadSize.
func NewMediaService(store storage.Storage, maxBytes int64, metrics *Metrics, logger *slog.Logger) *MediaService {
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadSize
	}
	return &MediaService{
		storage:  store,
		maxBytes: maxBytes,
		metrics:  metrics,
		logger:   logger,
	}
}

// UploadInput holds an incoming file. Size is the declared length, or -1
// when unknown; the body is checked against the limit either way.
type UploadInput struct {
	Folder   string
	FileName string
	Size     int64
	Data     io.Reader
}

// MaxBytes is the configured upload limit.
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload checks size and sniffed content type, then stores the file under
// <folder>/<uuid><ext>.
func (s *MediaService) Upload(ctx context.Context, input UploadInput) (*domain.StoredFile, error) {
	folder := input.Folder
	if folder == "" {
		folder = domain.FolderMisc
	}
	if !domain.IsValidFolder(folder) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("folder %q is not allowed", folder))
	}

	stored, err := s.upload(ctx, folder, input)
	s.metrics.uploads.WithLabelValues(folder, result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "file uploaded",
		slog.String("key", stored.Key),
		slog.String("content_type", stored.ContentType),
		slog.Int64("size", stored.Size),
	)
	return stored, nil
}

func (s *MediaService) upload(ctx context.Context, folder string, input UploadInput) (*domain.StoredFile, error) {
	if input.Data == nil {
		return nil, apperrors.InvalidInput("file is required")
	}
	if input.Size > s.maxBytes {
		return nil, apperrors.FileTooLarge(s.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(input.Data, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.FileTooLarge(s.maxBytes)
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("file is empty")
	}

	contentType := sniff(data)
	if !domain.IsAllowedContentType(contentType) {
		return nil, apperrors.UnsupportedMedia(contentType)
	}

	return s.put(ctx, folder, uuid.New().String(), contentType, data)
}

// StoreBytes writes generated content, such as a rendered thumbnail, under
// folder/name.
func (s *MediaService) StoreBytes(ctx context.Context, folder, name, contentType string, data []byte) (*domain.StoredFile, error) {
	stored, err := s.put(ctx, folder, name, contentType, data)
	s.metrics.uploads.WithLabelValues(folder, result(err)).Inc()
	return stored, err
}

func (s *MediaService) put(ctx context.Context, folder, name, contentType string, data []byte) (*domain.StoredFile, error) {
	key := folder + "/" + name + domain.ExtensionFor(contentType)
	res, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	return &domain.StoredFile{
		Key:         res.Key,
		URL:         res.URL,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// DeleteByURL removes a stored file addressed by its public URL. URLs not
// served by this storage are ignored. Failures are logged only.
func (s *MediaService) DeleteByURL(ctx context.Context, url string) {
	key, ok := s.storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete stored file",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "stored file deleted", slog.String("key", key))
}

// sniff returns the detected MIME type without parameters.
func sniff(data []byte) string {
	ct := mimetype.Detect(data).String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
