package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CloudinaryConfig configures unsigned uploads through an upload preset.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	BaseURL      string
	Timeout      time.Duration
}

// CloudinaryStorage uploads assets to Cloudinary's image upload endpoint.
type CloudinaryStorage struct {
	client       *resty.Client
	cloudName    string
	uploadPreset string
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
}

type cloudinaryErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewCloudinaryStorage(cfg *CloudinaryConfig) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, fmt.Errorf("cloudinary requires cloud_name and upload_preset")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com/v1_1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout)

	return &CloudinaryStorage{
		client:       client,
		cloudName:    cfg.CloudName,
		uploadPreset: cfg.UploadPreset,
	}, nil
}

// UploadAsset submits the payload as-is; Cloudinary accepts data URLs and remote URLs directly.
func (c *CloudinaryStorage) UploadAsset(ctx context.Context, payload, folder, identifier string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrEmptyPayload
	}

	file := payload
	if !IsRemoteURL(payload) && !strings.HasPrefix(payload, "data:") {
		asset, err := DecodePayload(payload)
		if err != nil {
			return "", err
		}
		file = fmt.Sprintf("data:%s;base64,%s", asset.ContentType, payload)
	}

	form := map[string]string{
		"file":          file,
		"upload_preset": c.uploadPreset,
		"public_id":     AssetIdentifier(identifier, payload),
	}
	if folder != "" {
		form["folder"] = folder
	}

	var result cloudinaryUploadResponse
	var apiErr cloudinaryErrorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/%s/image/upload", c.cloudName))
	if err != nil {
		return "", fmt.Errorf("failed to send upload request: %w", err)
	}

	if resp.IsError() {
		body := apiErr.Error.Message
		if body == "" {
			body = resp.String()
		}
		return "", &HTTPError{StatusCode: resp.StatusCode(), Body: body}
	}

	if result.SecureURL == "" {
		return "", fmt.Errorf("upload response did not include a secure_url")
	}

	return result.SecureURL, nil
}
