package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/nahankar/shatika/internal/storage"
	"github.com/nahankar/shatika/pkg/breaker"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// DefaultPublicBaseURL serves objects from buckets with public read access.
const DefaultPublicBaseURL = "https://storage.googleapis.com"

// NewClient creates a Cloud Storage client. An empty credentialsFile uses
// Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string) (*gcstorage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// Storage implements storage.Storage on a Cloud Storage bucket. Writes and
// deletes go through a circuit breaker.
type Storage struct {
	client  *gcstorage.Client
	bucket  string
	baseURL string
	breaker *breaker.Breaker[struct{}]
}

var _ storage.Storage = (*Storage)(nil)

// New creates a bucket-backed storage. Objects are addressed publicly as
// baseURL/bucket/key; an empty baseURL uses DefaultPublicBaseURL.
func New(client *gcstorage.Client, bucket, baseURL string, br *breaker.Breaker[struct{}]) (*Storage, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if baseURL == "" {
		baseURL = DefaultPublicBaseURL
	}
	return &Storage{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		breaker: br,
	}, nil
}

// Upload streams the file to the bucket.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key, err := storage.CleanKey(input.Key)
	if err != nil {
		return nil, err
	}

	_, err = s.breaker.Execute(func() (struct{}, error) {
		w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		w.ContentType = input.ContentType
		w.CacheControl = "public, max-age=31536000, immutable"
		if _, err := io.Copy(w, input.Data); err != nil {
			_ = w.Close()
			return struct{}{}, fmt.Errorf("write object: %w", err)
		}
		if err := w.Close(); err != nil {
			return struct{}{}, fmt.Errorf("close object writer: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, apperrors.Upstream("object upload", err)
	}

	return &storage.UploadResult{
		Key: key,
		URL: s.objectURL(key),
	}, nil
}

// Delete removes the object for key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	key, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	var missing bool
	_, err = s.breaker.Execute(func() (struct{}, error) {
		err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			missing = true
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		return apperrors.Upstream("object delete", err)
	}
	if missing {
		return apperrors.NotFound("file", key)
	}
	return nil
}

// GetURL returns the public URL for key if the object exists.
func (s *Storage) GetURL(ctx context.Context, key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if _, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return "", apperrors.NotFound("file", key)
		}
		return "", apperrors.Upstream("object lookup", err)
	}
	return s.objectURL(key), nil
}

// KeyFromURL maps baseURL/bucket/key back to key.
func (s *Storage) KeyFromURL(url string) (string, bool) {
	return storage.KeyUnderPrefix(url, s.baseURL+"/"+s.bucket)
}

func (s *Storage) objectURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}
