package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
)

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrEmptyQueue):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, domain.ErrNoActiveRun),
		errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrSessionChanged):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...} with the mapped status and logs server-side failures.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.CtxError(c.Request.Context(), "Request failed: path=%s, error=%v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": domain.UserMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
