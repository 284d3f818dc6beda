// Package blobstore keeps run sources keyed by run GUID.
package blobstore

import (
	"context"
	"fmt"

	"judge_gate/internal/platform/config"
)

type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// New returns the store selected by cfg.BlobStoreKind.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobStoreKind {
	case "fs", "":
		return NewFSStore(cfg.RunsPath)
	case "s3":
		return NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	}
	return nil, fmt.Errorf("unknown blob store %q", cfg.BlobStoreKind)
}
