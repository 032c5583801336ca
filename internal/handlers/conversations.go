package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/services"
	appErrors "github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/response"
)

type ConversationHandler struct {
	conversations *services.ConversationService
}

func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

type createConversationRequest struct {
	ConnectionID string `json:"connection_id" validate:"required,uuid4"`
	Title        string `json:"title" validate:"omitempty,max=256"`
	Activate     bool   `json:"activate"`
}

type appendMessageRequest struct {
	Role            string         `json:"role" validate:"required"`
	Content         string         `json:"content"`
	SQLQuery        string         `json:"sql_query" validate:"omitempty"`
	Explanation     string         `json:"explanation" validate:"omitempty"`
	Confidence      *int           `json:"confidence"`
	ExecutionTimeMs *int           `json:"execution_time_ms"`
	RowsAffected    *int           `json:"rows_affected"`
	Error           string         `json:"error" validate:"omitempty"`
	Metadata        map[string]any `json:"metadata"`
}

type appendMessageResponse struct {
	Message      *models.Message      `json:"message"`
	Conversation *models.Conversation `json:"conversation"`
}

// GET /api/workspaces/:id/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversations, err := h.conversations.List(requestContext(c), c.Param("id"), c.Query("connection_id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversations)
}

// POST /api/workspaces/:id/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createConversationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	conversation, err := h.conversations.Create(requestContext(c), services.CreateConversationInput{
		WorkspaceID:  c.Param("id"),
		ConnectionID: req.ConnectionID,
		CreatedByID:  userID,
		Title:        req.Title,
		Activate:     req.Activate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, conversation)
}

// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversation, err := h.conversations.Get(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversation)
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.conversations.Delete(requestContext(c), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.conversations.ListMessages(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// POST /api/conversations/:id/messages
func (h *ConversationHandler) AppendMessage(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req appendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, conversation, err := h.conversations.AppendMessage(requestContext(c), c.Param("id"), userID, services.AppendMessageInput{
		Role:            models.MessageRole(req.Role),
		Content:         req.Content,
		SQLQuery:        req.SQLQuery,
		Explanation:     req.Explanation,
		Confidence:      req.Confidence,
		ExecutionTimeMs: req.ExecutionTimeMs,
		RowsAffected:    req.RowsAffected,
		Error:           req.Error,
		Metadata:        req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, appendMessageResponse{
		Message:      message,
		Conversation: conversation,
	})
}
