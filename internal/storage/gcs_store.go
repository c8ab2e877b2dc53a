//go:build gcp

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	Bucket        string
	PublicBaseURL string
}

// NewGCSStore creates a new GCS-backed object store (ADC credentials).
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, publicBaseURL: base}, nil
}

// Put writes the object only if it does not exist yet.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "max-age=3600"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return s.classify(key, err)
	}
	if err := w.Close(); err != nil {
		return s.classify(key, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) classify(key string, err error) error {
	if errors.Is(err, gcs.ErrBucketNotExist) {
		return newError(CodeBucketNotFound, err, "Bucket not found: %s", s.bucket)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return newError(CodeBucketNotFound, err, "Bucket not found: %s", s.bucket)
		case http.StatusPreconditionFailed:
			return newError(CodeDuplicate, err, "The resource already exists (duplicate): %s", key)
		case http.StatusRequestEntityTooLarge:
			return newError(CodeTooLarge, err, "The object exceeded the maximum allowed size")
		case http.StatusBadRequest:
			if mentionsContentType(gerr.Message) {
				return newError(CodeUnsupportedType, err, "Unsupported content type for %s", key)
			}
		}
	}
	return fmt.Errorf("gcs put failed: %w", err)
}
