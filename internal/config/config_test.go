package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  mode: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Second, cfg.Upload.InterJobDelay)
	assert.Equal(t, []int{30, 60, 90, 100}, []int{
		cfg.Upload.ProgressSubmitted, cfg.Upload.ProgressUploaded, cfg.Upload.ProgressSaving, cfg.Upload.ProgressDone,
	})
	assert.Equal(t, 500, cfg.Chat.MaxInputLength)
	assert.Equal(t, 50, cfg.Chat.HistoryCap)
	assert.Equal(t, 5, cfg.Chat.HistoryWindow)
	assert.Equal(t, 30*time.Second, cfg.Chat.RequestTimeout)
	assert.Equal(t, 4*time.Second, cfg.Chat.TypingMax)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionIdleTimeout)
	assert.Equal(t, time.Minute, cfg.Chat.SessionSweepInterval)
	assert.Equal(t, "folio:suggestions", cfg.Redis.Key)
}

func TestLoadFileValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
upload:
  inter_job_delay: 250ms
  dataset_path: /srv/datasets
chat:
  request_timeout: 10s
  contact_email: me@example.com
storage:
  type: cloudinary
  cloudinary:
    cloud_name: demo
`))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Upload.InterJobDelay)
	assert.Equal(t, "/srv/datasets", cfg.Upload.DatasetPath)
	assert.Equal(t, 10*time.Second, cfg.Chat.RequestTimeout)
	assert.Equal(t, "me@example.com", cfg.Chat.ContactEmail)
	assert.Equal(t, "cloudinary", cfg.Storage.Type)
	assert.Equal(t, "demo", cfg.Storage.Cloudinary.CloudName)
	assert.Equal(t, "https://api.cloudinary.com/v1_1", cfg.Storage.Cloudinary.BaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("CONTACT_EMAIL", "env@example.com")

	cfg, err := Load(writeConfig(t, "chat:\n  contact_email: file@example.com\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "env@example.com", cfg.Chat.ContactEmail)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "upload:\n  progress_uploaded: 20\n"))
	assert.ErrorContains(t, err, "progress steps")

	_, err = Load(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "postgres"},
			Upload:   UploadConfig{ProgressSubmitted: 30, ProgressUploaded: 60, ProgressSaving: 90, ProgressDone: 100},
			Chat: ChatConfig{
				MaxInputLength:       500,
				HistoryCap:           50,
				TypingWordsPerSecond: 3,
				SessionIdleTimeout:   30 * time.Minute,
				SessionSweepInterval: time.Minute,
			},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Upload.InterJobDelay = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Upload.ProgressDone = 120
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Chat.HistoryCap = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Chat.TypingWordsPerSecond = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Chat.SessionIdleTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "./x.db", (&DatabaseConfig{Driver: "sqlite", Path: "./x.db"}).DSN())
	assert.Equal(t, "postgres://u@h/db", (&DatabaseConfig{Driver: "postgres", URL: "postgres://u@h/db", Path: "./x.db"}).DSN())
}
