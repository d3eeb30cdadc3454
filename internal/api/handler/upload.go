package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/service"
	"github.com/timmy/folio/internal/source"
)

// UploadController is the bulk upload surface used by the handler.
type UploadController interface {
	Start(ctx context.Context, sourceName string, records []domain.CertificateRecord) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
	Snapshot() service.RunState
	Jobs() []domain.UploadJob
	Logs() []domain.LogEntry
}

// RunLister reads persisted run summaries.
type RunLister interface {
	List(ctx context.Context, limit int) ([]domain.UploadRun, error)
}

// UploadHandler handles bulk upload endpoints.
type UploadHandler struct {
	uploads UploadController
	sources map[string]source.Source
	runs    RunLister
}

// NewUploadHandler creates an upload handler. runs may be nil when history is not persisted.
func NewUploadHandler(uploads UploadController, sources map[string]source.Source, runs RunLister) *UploadHandler {
	return &UploadHandler{uploads: uploads, sources: sources, runs: runs}
}

// StartUploadRequest names a configured source or carries the records inline.
type StartUploadRequest struct {
	Source  string                     `json:"source"`
	Records []domain.CertificateRecord `json:"records"`
}

// StatusResponse is the run snapshot plus the per-job view.
type StatusResponse struct {
	service.RunState
	Jobs []domain.UploadJob `json:"jobs"`
}

// Start handles POST /api/v1/uploads.
func (h *UploadHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	var src source.Source
	switch {
	case len(req.Records) > 0:
		src = &source.Static{Label: req.Source, Records: req.Records}
	case req.Source != "":
		var ok bool
		if src, ok = h.sources[req.Source]; !ok {
			logger.CtxWarn(ctx, "Unknown upload source requested: source=%s, client_ip=%s", req.Source, c.ClientIP())
			badRequest(c, "Unknown source: "+req.Source)
			return
		}
	default:
		badRequest(c, "Either source or records is required")
		return
	}

	records, err := src.Load(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	runID, err := h.uploads.Start(ctx, src.Name(), records)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.CtxInfo(ctx, "Upload run started: run_id=%s, source=%s, total=%d", runID, src.Name(), len(records))
	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"total":  len(records),
	})
}

// Pause handles POST /api/v1/uploads/pause.
func (h *UploadHandler) Pause(c *gin.Context) {
	h.control(c, h.uploads.Pause)
}

// Resume handles POST /api/v1/uploads/resume.
func (h *UploadHandler) Resume(c *gin.Context) {
	h.control(c, h.uploads.Resume)
}

// Stop handles POST /api/v1/uploads/stop.
func (h *UploadHandler) Stop(c *gin.Context) {
	h.control(c, h.uploads.Stop)
}

// Reset handles POST /api/v1/uploads/reset.
func (h *UploadHandler) Reset(c *gin.Context) {
	h.control(c, h.uploads.Reset)
}

func (h *UploadHandler) control(c *gin.Context, op func(context.Context) error) {
	if err := op(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.uploads.Snapshot())
}

// Status handles GET /api/v1/uploads/status.
func (h *UploadHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		RunState: h.uploads.Snapshot(),
		Jobs:     h.uploads.Jobs(),
	})
}

// Logs handles GET /api/v1/uploads/logs.
func (h *UploadHandler) Logs(c *gin.Context) {
	logs := h.uploads.Logs()
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
	})
}

// Runs handles GET /api/v1/uploads/runs.
func (h *UploadHandler) Runs(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []domain.UploadRun{}, "total": 0})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}
