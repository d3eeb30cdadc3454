package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/folio/internal/config"
	"github.com/timmy/folio/internal/domain"
)

func TestUploadConfigMapping(t *testing.T) {
	got := UploadConfig(config.UploadConfig{
		InterJobDelay:     2 * time.Second,
		ProgressSubmitted: 10,
		ProgressUploaded:  50,
		ProgressSaving:    80,
		ProgressDone:      100,
		DefaultCategory:   "Course",
		AssetFolder:       "certs",
		DatasetPath:       "/ignored",
	})

	assert.Equal(t, 2*time.Second, got.InterJobDelay)
	assert.Equal(t, 10, got.ProgressSubmitted)
	assert.Equal(t, 50, got.ProgressUploaded)
	assert.Equal(t, 80, got.ProgressSaving)
	assert.Equal(t, 100, got.ProgressDone)
	assert.Equal(t, "Course", got.DefaultCategory)
	assert.Equal(t, "certs", got.AssetFolder)
}

func TestChatConfigMapping(t *testing.T) {
	got := ChatConfig(config.ChatConfig{
		MaxInputLength:       300,
		HistoryCap:           20,
		HistoryWindow:        3,
		RequestTimeout:       10 * time.Second,
		TypingWordsPerSecond: 5,
		ContactEmail:         "me@example.com",
		OwnerName:            "Ana",
	})

	assert.Equal(t, 300, got.MaxInputLength)
	assert.Equal(t, 20, got.HistoryCap)
	assert.Equal(t, 3, got.HistoryWindow)
	assert.Equal(t, 10*time.Second, got.RequestTimeout)
	assert.Equal(t, 5.0, got.TypingWordsPerSecond)
	assert.Equal(t, "me@example.com", got.ContactEmail)
	assert.Equal(t, "Ana", got.OwnerName)
}

func TestOpenStores(t *testing.T) {
	stores, err := OpenStores(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "folio.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Ping(ctx))

	require.NoError(t, stores.Projects.Create(ctx, &domain.Project{Name: "Folio"}))
	n, err := stores.Projects.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDatasetSources(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "aws"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "aws", "manifest.jsonl"), []byte("{}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "empty"), 0o755))

	sources, err := DatasetSources(base)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "dataset:aws", sources["aws"].Name())

	sources, err = DatasetSources(filepath.Join(base, "missing"))
	require.NoError(t, err)
	assert.Empty(t, sources)
}
