package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudinaryUploadAsset(t *testing.T) {
	raw := pngBase64(t, 1, 1)

	t.Run("returns secure url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/demo/image/upload", r.URL.Path)
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "unsigned", r.FormValue("upload_preset"))
			assert.Equal(t, AssetIdentifier("Go Developer", raw), r.FormValue("public_id"))
			assert.Equal(t, "certificates", r.FormValue("folder"))
			assert.Equal(t, "data:image/png;base64,"+raw, r.FormValue("file"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/certificates/go_developer.png","public_id":"certificates/go_developer"}`))
		}))
		defer server.Close()

		c, err := NewCloudinaryStorage(&CloudinaryConfig{CloudName: "demo", UploadPreset: "unsigned", BaseURL: server.URL})
		require.NoError(t, err)

		url, err := c.UploadAsset(context.Background(), raw, "certificates", "Go Developer")
		require.NoError(t, err)
		assert.Equal(t, "https://res.cloudinary.com/demo/certificates/go_developer.png", url)
	})

	t.Run("surfaces HTTP status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
		}))
		defer server.Close()

		c, err := NewCloudinaryStorage(&CloudinaryConfig{CloudName: "demo", UploadPreset: "missing", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = c.UploadAsset(context.Background(), "data:image/png;base64,"+raw, "", "x")
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
		assert.Equal(t, "Upload preset not found", httpErr.Body)
	})

	t.Run("requires cloud name and preset", func(t *testing.T) {
		_, err := NewCloudinaryStorage(&CloudinaryConfig{CloudName: "demo"})
		assert.Error(t, err)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		c, err := NewCloudinaryStorage(&CloudinaryConfig{CloudName: "demo", UploadPreset: "p"})
		require.NoError(t, err)
		_, err = c.UploadAsset(context.Background(), "", "", "x")
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})
}
