package storage

import (
	"context"
	"fmt"
)

// NewStore validates cfg and creates the Store for the configured driver.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case "", DriverMinio:
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewMinioStore(client, cfg.BucketName), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
