package storage

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/mediaexplain/internal/config"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

// Store is an object store that can also report its own health.
type Store interface {
	media.ObjectStore
	Name() string
	Check(ctx context.Context) error
}

// Open builds the store selected by storage.driver. It returns nil, nil
// when no driver is configured.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMinio:
		m := cfg.Storage.Minio
		st, err := NewMinio(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverGCS:
		st, err := NewGCS(ctx, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
