package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/folio/internal/domain"
)

// CertificateLister reads certificates, newest first.
type CertificateLister interface {
	List(ctx context.Context, limit int) ([]domain.Certificate, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectLister reads projects, newest first.
type ProjectLister interface {
	List(ctx context.Context, limit int) ([]domain.Project, error)
	Count(ctx context.Context) (int64, error)
}

// PortfolioContext supplies retrieved context for chat prompts.
type PortfolioContext interface {
	ProjectsSummary(ctx context.Context) (string, error)
	CertificatesSummary(ctx context.Context) (string, error)
	ProjectCount(ctx context.Context) (int, error)
}

// RepositoryContext formats the most recent records from the repositories.
type RepositoryContext struct {
	projects     ProjectLister
	certificates CertificateLister
	limit        int
}

func NewRepositoryContext(projects ProjectLister, certificates CertificateLister, limit int) *RepositoryContext {
	if limit <= 0 {
		limit = 5
	}
	return &RepositoryContext{projects: projects, certificates: certificates, limit: limit}
}

func (c *RepositoryContext) ProjectsSummary(ctx context.Context) (string, error) {
	projects, err := c.projects.List(ctx, c.limit)
	if err != nil {
		return "", fmt.Errorf("failed to list projects: %w", err)
	}
	total, err := c.projects.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count projects: %w", err)
	}
	return FormatProjects(projects, int(total)), nil
}

func (c *RepositoryContext) CertificatesSummary(ctx context.Context) (string, error) {
	certs, err := c.certificates.List(ctx, c.limit)
	if err != nil {
		return "", fmt.Errorf("failed to list certificates: %w", err)
	}
	total, err := c.certificates.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count certificates: %w", err)
	}
	return FormatCertificates(certs, int(total)), nil
}

func (c *RepositoryContext) ProjectCount(ctx context.Context) (int, error) {
	total, err := c.projects.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return int(total), nil
}

// FormatProjects renders one compact line per project.
func FormatProjects(projects []domain.Project, total int) string {
	if len(projects) == 0 {
		return "Projects: none listed yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Projects (%d shown of %d):\n", len(projects), total)
	for i, p := range projects {
		fmt.Fprintf(&sb, "%d. %s", i+1, p.Name)
		if p.Category != "" {
			fmt.Fprintf(&sb, " [%s]", p.Category)
		}
		if p.Description != "" {
			fmt.Fprintf(&sb, ": %s", p.Description)
		}
		if len(p.TechStack) > 0 {
			fmt.Fprintf(&sb, " | Tech: %s", strings.Join(p.TechStack, ", "))
		}
		if dates := dateRange(p.StartDate, p.EndDate); dates != "" {
			fmt.Fprintf(&sb, " | %s", dates)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatCertificates renders one compact line per certificate.
func FormatCertificates(certs []domain.Certificate, total int) string {
	if len(certs) == 0 {
		return "Certificates: none listed yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificates (%d shown of %d):\n", len(certs), total)
	for i, c := range certs {
		fmt.Fprintf(&sb, "%d. %s by %s", i+1, c.Name, c.Organization)
		if c.Category != "" {
			fmt.Fprintf(&sb, " [%s]", c.Category)
		}
		if c.Description != "" {
			fmt.Fprintf(&sb, ": %s", c.Description)
		}
		if len(c.Skills) > 0 {
			fmt.Fprintf(&sb, " | Skills: %s", strings.Join(c.Skills, ", "))
		}
		if c.IssueDate != "" {
			fmt.Fprintf(&sb, " | Issued %s", c.IssueDate)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func dateRange(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " to " + end
	case start != "":
		return start + " to present"
	default:
		return end
	}
}
