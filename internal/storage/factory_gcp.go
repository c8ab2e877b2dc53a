//go:build gcp

package storage

import (
	"context"

	"repair-intake/internal/config"
)

func newGCSStore(ctx context.Context, sc config.StorageConfig) (ObjectStore, error) {
	return NewGCSStore(ctx, GCSStoreConfig{Bucket: sc.Bucket, PublicBaseURL: sc.PublicBaseURL})
}
