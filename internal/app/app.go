// Package app wires configuration into the repositories and services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/timmy/folio/internal/config"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/repository"
	"github.com/timmy/folio/internal/service"
	"github.com/timmy/folio/internal/source"
	"github.com/timmy/folio/internal/source/dataset"
	"github.com/timmy/folio/internal/storage"
	"gorm.io/gorm"
)

// Stores holds the database handle and its repositories.
type Stores struct {
	DB           *gorm.DB
	Certificates *repository.CertificateRepository
	Projects     *repository.ProjectRepository
	Runs         *repository.UploadRunRepository
}

// OpenStores connects to the database and builds the repositories.
func OpenStores(cfg *config.DatabaseConfig) (*Stores, error) {
	db, err := repository.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &Stores{
		DB:           db,
		Certificates: repository.NewCertificateRepository(db),
		Projects:     repository.NewProjectRepository(db),
		Runs:         repository.NewUploadRunRepository(db),
	}, nil
}

// Ping checks the database connection.
func (s *Stores) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection pool.
func (s *Stores) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UploadConfig maps file configuration onto the orchestrator settings.
func UploadConfig(c config.UploadConfig) service.UploadConfig {
	return service.UploadConfig{
		InterJobDelay:     c.InterJobDelay,
		ProgressSubmitted: c.ProgressSubmitted,
		ProgressUploaded:  c.ProgressUploaded,
		ProgressSaving:    c.ProgressSaving,
		ProgressDone:      c.ProgressDone,
		DefaultCategory:   c.DefaultCategory,
		AssetFolder:       c.AssetFolder,
	}
}

// ChatConfig maps file configuration onto the chat session settings.
func ChatConfig(c config.ChatConfig) service.ChatConfig {
	return service.ChatConfig{
		MaxInputLength:       c.MaxInputLength,
		HistoryCap:           c.HistoryCap,
		HistoryWindow:        c.HistoryWindow,
		RequestTimeout:       c.RequestTimeout,
		TypingBase:           c.TypingBase,
		TypingWordsPerSecond: c.TypingWordsPerSecond,
		TypingMax:            c.TypingMax,
		WelcomeDelay:         c.WelcomeDelay,
		ErrorDelay:           c.ErrorDelay,
		ContactEmail:         c.ContactEmail,
		OwnerName:            c.OwnerName,
	}
}

// NewUploadService builds the bulk upload orchestrator over the configured storage backend.
func NewUploadService(ctx context.Context, cfg *config.Config, stores *Stores, log *logger.Logger) (*service.UploadService, error) {
	uploader, err := storage.NewAssetUploader(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return service.NewUploadService(uploader, stores.Certificates, stores.Runs, log, UploadConfig(cfg.Upload)), nil
}

// DatasetSources returns one source per dataset directory under basePath, keyed by directory name.
func DatasetSources(basePath string) (map[string]source.Source, error) {
	names, err := dataset.ListDatasets(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets in %s: %w", basePath, err)
	}
	sources := make(map[string]source.Source, len(names))
	for _, name := range names {
		sources[name] = dataset.NewAdapter(filepath.Join(basePath, name))
	}
	return sources, nil
}
