package repository

import (
	"context"

	"github.com/timmy/folio/internal/domain"
	"gorm.io/gorm"
)

// UploadRunRepository stores bulk upload run summaries.
type UploadRunRepository struct {
	db *gorm.DB
}

func NewUploadRunRepository(db *gorm.DB) *UploadRunRepository {
	return &UploadRunRepository{db: db}
}

func (r *UploadRunRepository) Create(ctx context.Context, run *domain.UploadRun) error {
	return classifyError(r.db.WithContext(ctx).Create(run).Error)
}

// Save writes the current counters and failure list of a run.
func (r *UploadRunRepository) Save(ctx context.Context, run *domain.UploadRun) error {
	return classifyError(r.db.WithContext(ctx).Save(run).Error)
}

func (r *UploadRunRepository) GetByID(ctx context.Context, id string) (*domain.UploadRun, error) {
	var run domain.UploadRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, classifyError(err)
	}
	return &run, nil
}

// List returns runs, newest first.
func (r *UploadRunRepository) List(ctx context.Context, limit int) ([]domain.UploadRun, error) {
	var runs []domain.UploadRun
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, classifyError(err)
	}
	return runs, nil
}
