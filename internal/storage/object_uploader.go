package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
)

// ObjectAssetUploader adapts a bucket store to AssetUploader.
type ObjectAssetUploader struct {
	store ObjectStorage
}

func NewObjectAssetUploader(store ObjectStorage) *ObjectAssetUploader {
	return &ObjectAssetUploader{store: store}
}

// UploadAsset decodes the payload and writes it under folder/<identifier>_<digest>.ext.
func (u *ObjectAssetUploader) UploadAsset(ctx context.Context, payload, folder, identifier string) (string, error) {
	if IsRemoteURL(payload) {
		return "", fmt.Errorf("remote image URLs are not supported by object storage")
	}

	asset, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}

	key := path.Join(folder, fmt.Sprintf("%s.%s", AssetIdentifier(identifier, payload), asset.Extension()))
	if err := u.store.Upload(ctx, key, bytes.NewReader(asset.Data), int64(len(asset.Data)), asset.ContentType); err != nil {
		return "", err
	}

	return u.store.GetURL(key), nil
}
