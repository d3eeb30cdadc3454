package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage is a bucket-style blob store addressed by key.
type ObjectStorage interface {
	// Upload writes an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL for key.
	GetURL(key string) string

	// EnsureBucket creates the target bucket when the backend allows it.
	EnsureBucket(ctx context.Context) error
}

// AssetUploader stores an image payload and returns the URL it can be served from.
// The payload is a data URL, bare base64, or (for backends that fetch remotely) an http(s) URL.
type AssetUploader interface {
	UploadAsset(ctx context.Context, payload, folder, identifier string) (string, error)
}

// HTTPError reports a non-2xx response from a storage API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("storage request failed with status %d: %s", e.StatusCode, e.Body)
}
