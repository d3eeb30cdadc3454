package source

import (
	"context"

	"github.com/timmy/folio/internal/domain"
)

// Source supplies the ordered certificate records for a bulk upload run.
type Source interface {
	// Name identifies the source in logs and run records.
	Name() string

	// Load returns every record in queue order.
	Load(ctx context.Context) ([]domain.CertificateRecord, error)
}

// Static is a Source over records already held in memory, such as an API request body.
type Static struct {
	Label   string
	Records []domain.CertificateRecord
}

func (s *Static) Name() string {
	if s.Label == "" {
		return "inline"
	}
	return s.Label
}

func (s *Static) Load(ctx context.Context) ([]domain.CertificateRecord, error) {
	out := make([]domain.CertificateRecord, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
