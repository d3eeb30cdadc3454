package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/domain"
)

// CertificateStore is the certificate persistence used by the handler.
type CertificateStore interface {
	Create(ctx context.Context, cert *domain.Certificate) error
	List(ctx context.Context, limit int) ([]domain.Certificate, error)
	GetByID(ctx context.Context, id string) (*domain.Certificate, error)
	Update(ctx context.Context, cert *domain.Certificate) error
	Delete(ctx context.Context, id string) error
}

// CertificateHandler handles certificate CRUD endpoints.
type CertificateHandler struct {
	certs CertificateStore
}

func NewCertificateHandler(certs CertificateStore) *CertificateHandler {
	return &CertificateHandler{certs: certs}
}

// CertificateRequest is the writable subset of a certificate.
type CertificateRequest struct {
	Name         string   `json:"name"`
	Organization string   `json:"organization"`
	Category     string   `json:"category"`
	Link         string   `json:"link"`
	IssueDate    string   `json:"issue_date"`
	Description  string   `json:"description"`
	Skills       []string `json:"skills"`
	ImageURL     string   `json:"image_url"`
}

func (r *CertificateRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &domain.ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(r.Organization) == "" {
		return &domain.ValidationError{Field: "organization", Message: "organization is required"}
	}
	return nil
}

func (r *CertificateRequest) apply(cert *domain.Certificate) {
	cert.Name = strings.TrimSpace(r.Name)
	cert.Organization = strings.TrimSpace(r.Organization)
	cert.Category = r.Category
	cert.Link = r.Link
	cert.IssueDate = r.IssueDate
	cert.Description = r.Description
	cert.Skills = domain.StringArray(r.Skills)
	cert.ImageURL = r.ImageURL
}

// List handles GET /api/v1/certificates.
func (h *CertificateHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	certs, err := h.certs.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"certificates": certs,
		"total":        len(certs),
	})
}

// Create handles POST /api/v1/certificates.
func (h *CertificateHandler) Create(c *gin.Context) {
	var req CertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	var cert domain.Certificate
	req.apply(&cert)
	if err := h.certs.Create(c.Request.Context(), &cert); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

// Update handles PUT /api/v1/certificates/:id.
func (h *CertificateHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req CertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	cert, err := h.certs.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	req.apply(cert)
	if err := h.certs.Update(ctx, cert); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

// Delete handles DELETE /api/v1/certificates/:id.
func (h *CertificateHandler) Delete(c *gin.Context) {
	if err := h.certs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
