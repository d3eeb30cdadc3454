package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/folio/internal/domain"
)

type stubProjects struct {
	items []domain.Project
	total int64
	err   error
	limit int
}

func (s *stubProjects) List(ctx context.Context, limit int) ([]domain.Project, error) {
	s.limit = limit
	return s.items, s.err
}

func (s *stubProjects) Count(ctx context.Context) (int64, error) { return s.total, s.err }

type stubCertificates struct {
	items []domain.Certificate
	total int64
	err   error
}

func (s *stubCertificates) List(ctx context.Context, limit int) ([]domain.Certificate, error) {
	return s.items, s.err
}

func (s *stubCertificates) Count(ctx context.Context) (int64, error) { return s.total, s.err }

func TestFormatProjects(t *testing.T) {
	assert.Equal(t, "Projects: none listed yet.", FormatProjects(nil, 0))

	got := FormatProjects([]domain.Project{
		{Name: "Folio", Category: "web", Description: "Portfolio site", TechStack: domain.StringArray{"Go", "React"}, StartDate: "2023-01"},
		{Name: "CLI", EndDate: "2022-06"},
	}, 7)

	assert.Equal(t,
		"Projects (2 shown of 7):\n"+
			"1. Folio [web]: Portfolio site | Tech: Go, React | 2023-01 to present\n"+
			"2. CLI | 2022-06",
		got)
}

func TestFormatCertificates(t *testing.T) {
	assert.Equal(t, "Certificates: none listed yet.", FormatCertificates(nil, 0))

	got := FormatCertificates([]domain.Certificate{
		{Name: "AWS Developer", Organization: "Amazon", Category: "cloud", Skills: domain.StringArray{"Lambda"}, IssueDate: "2024-02-01"},
	}, 1)

	assert.Equal(t, "Certificates (1 shown of 1):\n1. AWS Developer by Amazon [cloud] | Skills: Lambda | Issued 2024-02-01", got)
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, "2020 to 2021", dateRange("2020", "2021"))
	assert.Equal(t, "2020 to present", dateRange("2020", ""))
	assert.Equal(t, "2021", dateRange("", "2021"))
	assert.Empty(t, dateRange("", ""))
}

func TestRepositoryContext(t *testing.T) {
	ctx := context.Background()
	projects := &stubProjects{items: []domain.Project{{Name: "Folio"}}, total: 4}
	certs := &stubCertificates{items: []domain.Certificate{{Name: "CKA", Organization: "CNCF"}}, total: 1}
	rc := NewRepositoryContext(projects, certs, 0)

	summary, err := rc.ProjectsSummary(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "1 shown of 4")
	assert.Equal(t, 5, projects.limit)

	summary, err = rc.CertificatesSummary(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "CKA by CNCF")

	count, err := rc.ProjectCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRepositoryContextErrors(t *testing.T) {
	ctx := context.Background()
	rc := NewRepositoryContext(
		&stubProjects{err: domain.ErrUnavailable},
		&stubCertificates{err: errors.New("boom")},
		3,
	)

	_, err := rc.ProjectsSummary(ctx)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = rc.CertificatesSummary(ctx)
	assert.ErrorContains(t, err, "failed to list certificates")

	_, err = rc.ProjectCount(ctx)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
