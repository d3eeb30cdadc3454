package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/service"
)

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// SendMessageRequest carries one visitor message.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// ProjectContextRequest syncs the project viewer position.
type ProjectContextRequest struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// SuggestionRequest selects a quick suggestion by key.
type SuggestionRequest struct {
	Key string `json:"key" binding:"required"`
}

// session resolves :id and tags the request context with it.
func (h *ChatHandler) session(c *gin.Context) (*service.ChatSession, bool) {
	session, err := h.chats.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	c.Request = c.Request.WithContext(logger.SetSessionID(c.Request.Context(), session.ID()))
	return session, true
}

// Create handles POST /api/v1/chat/sessions.
func (h *ChatHandler) Create(c *gin.Context) {
	session := h.chats.Create()
	logger.CtxInfo(c.Request.Context(), "Chat session created: session_id=%s", session.ID())
	c.JSON(http.StatusCreated, session.State())
}

// Get handles GET /api/v1/chat/sessions/:id.
func (h *ChatHandler) Get(c *gin.Context) {
	if session, ok := h.session(c); ok {
		c.JSON(http.StatusOK, session.State())
	}
}

// Delete handles DELETE /api/v1/chat/sessions/:id.
func (h *ChatHandler) Delete(c *gin.Context) {
	if err := h.chats.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Open handles POST /api/v1/chat/sessions/:id/open.
func (h *ChatHandler) Open(c *gin.Context) {
	if session, ok := h.session(c); ok {
		session.Open(c.Request.Context())
		c.JSON(http.StatusOK, session.State())
	}
}

// Close handles POST /api/v1/chat/sessions/:id/close.
func (h *ChatHandler) Close(c *gin.Context) {
	if session, ok := h.session(c); ok {
		session.Close(c.Request.Context())
		c.JSON(http.StatusOK, session.State())
	}
}

// Minimize handles POST /api/v1/chat/sessions/:id/minimize.
func (h *ChatHandler) Minimize(c *gin.Context) {
	if session, ok := h.session(c); ok {
		session.ToggleMinimize()
		c.JSON(http.StatusOK, session.State())
	}
}

// SendMessage handles POST /api/v1/chat/sessions/:id/messages.
// A failed completion still answers 200: the fallback reply is part of the returned state.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	h.deliver(c, session, session.SendMessage(c.Request.Context(), req.Message))
}

// ClearMessages handles DELETE /api/v1/chat/sessions/:id/messages.
func (h *ChatHandler) ClearMessages(c *gin.Context) {
	if session, ok := h.session(c); ok {
		session.ClearChat(c.Request.Context())
		c.JSON(http.StatusOK, session.State())
	}
}

// UpdateProjectContext handles PUT /api/v1/chat/sessions/:id/project-context.
func (h *ChatHandler) UpdateProjectContext(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req ProjectContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := session.UpdateProjectContext(req.Index, req.Total); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.State().Pagination)
}

// Suggestions handles GET /api/v1/chat/sessions/:id/suggestions.
func (h *ChatHandler) Suggestions(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "4"))
	if err != nil {
		badRequest(c, "limit must be an integer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": session.Suggestions(c.Request.Context(), limit)})
}

// SendSuggestion handles POST /api/v1/chat/sessions/:id/suggestions.
func (h *ChatHandler) SendSuggestion(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	h.deliver(c, session, session.SendSuggestion(c.Request.Context(), req.Key))
}

func (h *ChatHandler) deliver(c *gin.Context, session *service.ChatSession, err error) {
	switch {
	case err == nil:
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrSessionChanged):
		respondError(c, err)
		return
	default:
		logger.CtxWarn(c.Request.Context(), "Chat reply degraded to fallback: error=%v", err)
	}
	c.JSON(http.StatusOK, session.State())
}
