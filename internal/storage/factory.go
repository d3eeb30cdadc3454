package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/folio/internal/config"
)

// NewAssetUploader builds the uploader selected by cfg.Type.
// Bucket backends get their bucket ensured before use.
func NewAssetUploader(ctx context.Context, cfg *config.StorageConfig) (AssetUploader, error) {
	storeType := StorageType(cfg.Type)
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	if storeType == StorageTypeCloudinary {
		return NewCloudinaryStorage(&CloudinaryConfig{
			CloudName:    cfg.Cloudinary.CloudName,
			UploadPreset: cfg.Cloudinary.UploadPreset,
			BaseURL:      cfg.Cloudinary.BaseURL,
		})
	}

	s3cfg := &S3Config{
		Type:      storeType,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	}

	var store ObjectStorage
	var err error
	switch storeType {
	case StorageTypeMinIO:
		store, err = NewMinIOStorage(s3cfg)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible:
		store, err = NewS3Storage(s3cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	return NewObjectAssetUploader(store), nil
}

// detectStorageType guesses the backend from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
