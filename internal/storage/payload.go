package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"unicode"

	_ "golang.org/x/image/webp"
)

// ErrEmptyPayload is returned when a record carries no image data.
var ErrEmptyPayload = errors.New("image payload is empty")

// Asset is a decoded image payload.
type Asset struct {
	Data        []byte
	ContentType string
	Format      string
	Width       int
	Height      int
}

// assetHashLen is the number of hex digits of the payload digest kept in a key.
const assetHashLen = 12

// SanitizeIdentifier turns a display name into a storage-safe identifier.
// Letters and digits of any script are kept; every other run becomes "_".
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "asset"
	}
	return b.String()
}

// AssetIdentifier derives the stored name of an asset from its display name and payload.
// The digest suffix keeps names that sanitize alike from overwriting each other; the same
// image under the same name maps to the same key.
func AssetIdentifier(name, payload string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + strings.TrimSpace(payload)))
	return SanitizeIdentifier(name) + "_" + hex.EncodeToString(sum[:])[:assetHashLen]
}

// IsRemoteURL reports whether payload references an image by URL rather than embedding it.
func IsRemoteURL(payload string) bool {
	return strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://")
}

// DecodePayload decodes a data URL or bare base64 string and checks it is a readable image.
func DecodePayload(payload string) (*Asset, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	encoded := payload
	declaredType := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		meta := payload[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("data URL is not base64 encoded")
		}
		declaredType = strings.TrimSuffix(meta, ";base64")
		encoded = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("payload is not a supported image: %w", err)
	}

	contentType := declaredType
	if contentType == "" {
		contentType = "image/" + format
	}

	return &Asset{
		Data:        data,
		ContentType: contentType,
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// Extension returns the file extension for the decoded format.
func (a *Asset) Extension() string {
	if a.Format == "jpeg" {
		return "jpg"
	}
	return a.Format
}
