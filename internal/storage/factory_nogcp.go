//go:build !gcp

package storage

import (
	"context"
	"fmt"

	"repair-intake/internal/config"
)

func newGCSStore(ctx context.Context, sc config.StorageConfig) (ObjectStore, error) {
	return nil, fmt.Errorf("GCS storage is not enabled in this build (use -tags gcp)")
}
