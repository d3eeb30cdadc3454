package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/timmy/folio/internal/domain"
	"gorm.io/gorm"
)

// CertificateRepository persists certificate records.
type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts a certificate, assigning an ID when none is set.
func (r *CertificateRepository) Create(ctx context.Context, cert *domain.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.New().String()
	}
	return classifyError(r.db.WithContext(ctx).Create(cert).Error)
}

// List returns certificates, newest issue date first.
func (r *CertificateRepository) List(ctx context.Context, limit int) ([]domain.Certificate, error) {
	var certs []domain.Certificate
	query := r.db.WithContext(ctx).Order("issue_date DESC").Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&certs).Error; err != nil {
		return nil, classifyError(err)
	}
	return certs, nil
}

func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*domain.Certificate, error) {
	var cert domain.Certificate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cert).Error; err != nil {
		return nil, classifyError(err)
	}
	return &cert, nil
}

// Update overwrites every editable column; a missing row is ErrNotFound.
func (r *CertificateRepository) Update(ctx context.Context, cert *domain.Certificate) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Certificate{ID: cert.ID}).
		Select("name", "organization", "category", "link", "issue_date", "description", "skills", "image_url").
		Updates(cert)
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Certificate{})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CertificateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Certificate{}).Count(&count).Error; err != nil {
		return 0, classifyError(err)
	}
	return count, nil
}
