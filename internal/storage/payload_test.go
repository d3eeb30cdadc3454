package storage

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces and case", "AWS Certified Developer", "aws_certified_developer"},
		{"punctuation collapsed", "  Go: The Complete (2024) Guide!  ", "go_the_complete_2024_guide"},
		{"only symbols", "***", "asset"},
		{"cyrillic kept", "Сертификат Go", "сертификат_go"},
		{"cjk kept", "日本語 資格", "日本語_資格"},
		{"empty", "", "asset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeIdentifier(tt.in))
		})
	}
}

func TestAssetIdentifier(t *testing.T) {
	payload := "data:image/png;base64,AAAA"

	id := AssetIdentifier("C++ Basics", payload)
	assert.True(t, strings.HasPrefix(id, "c_basics_"))
	assert.Len(t, id, len("c_basics_")+assetHashLen)

	assert.NotEqual(t, id, AssetIdentifier("C Basics", payload))
	assert.NotEqual(t, id, AssetIdentifier("C++ Basics", "data:image/png;base64,BBBB"))
	assert.Equal(t, id, AssetIdentifier("C++ Basics", "  "+payload+"\n"))
	assert.NotEqual(t, AssetIdentifier("Сертификат", payload), AssetIdentifier("日本語資格", payload))
}

func TestDecodePayload(t *testing.T) {
	raw := pngBase64(t, 3, 2)

	t.Run("data URL", func(t *testing.T) {
		asset, err := DecodePayload("data:image/png;base64," + raw)
		require.NoError(t, err)
		assert.Equal(t, "image/png", asset.ContentType)
		assert.Equal(t, "png", asset.Format)
		assert.Equal(t, 3, asset.Width)
		assert.Equal(t, 2, asset.Height)
		assert.Equal(t, "png", asset.Extension())
	})

	t.Run("bare base64", func(t *testing.T) {
		asset, err := DecodePayload(raw)
		require.NoError(t, err)
		assert.Equal(t, "image/png", asset.ContentType)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodePayload("   ")
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DecodePayload("data:image/png;base64,%%%")
		assert.Error(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := DecodePayload(base64.StdEncoding.EncodeToString([]byte("hello")))
		assert.Error(t, err)
	})

	t.Run("non-base64 data URL", func(t *testing.T) {
		_, err := DecodePayload("data:text/plain,hello")
		assert.Error(t, err)
	})
}
