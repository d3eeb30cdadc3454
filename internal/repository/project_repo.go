package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/timmy/folio/internal/domain"
	"gorm.io/gorm"
)

// ProjectRepository persists portfolio projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	return classifyError(r.db.WithContext(ctx).Create(project).Error)
}

// List returns projects, most recently created first.
func (r *ProjectRepository) List(ctx context.Context, limit int) ([]domain.Project, error) {
	var projects []domain.Project
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, classifyError(err)
	}
	return projects, nil
}

func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Project{}).Count(&count).Error; err != nil {
		return 0, classifyError(err)
	}
	return count, nil
}
