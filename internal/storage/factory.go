package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"repair-intake/internal/config"
)

const (
	TypeFS  = "fs"
	TypeS3  = "s3"
	TypeGCS = "gcs"
)

// New builds the object store selected by cfg.Storage.Type.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	sc := cfg.Storage
	switch sc.Type {
	case "", TypeFS:
		base := sc.PublicBaseURL
		if base == "" {
			base = cfg.PublicBaseURL
		}
		return NewFileStore(filepath.Join(cfg.DataDir, "media"), sc.Bucket, base)
	case TypeS3:
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:        sc.Bucket,
			Region:        sc.Region,
			Endpoint:      sc.Endpoint,
			PublicBaseURL: sc.PublicBaseURL,
		})
	case TypeGCS:
		return newGCSStore(ctx, sc)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", sc.Type)
	}
}
