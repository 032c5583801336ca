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

type APIKeyHandler struct {
	keys *services.APIKeyService
}

func NewAPIKeyHandler(keys *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

type upsertAPIKeyRequest struct {
	Provider string `json:"provider" validate:"required,oneof=gemini openai anthropic"`
	Name     string `json:"name" validate:"omitempty,max=128"`
	Key      string `json:"key" validate:"required,min=10"`
}

type updateAPIKeyRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=128"`
	IsActive *bool   `json:"is_active"`
}

// GET /api/settings/api-keys
func (h *APIKeyHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	keys, err := h.keys.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, keys)
}

// POST /api/settings/api-keys
func (h *APIKeyHandler) Upsert(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req upsertAPIKeyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	key, err := h.keys.Upsert(requestContext(c), userID, services.UpsertAPIKeyInput{
		Provider: models.APIKeyProvider(req.Provider),
		Name:     req.Name,
		Key:      req.Key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, key)
}

// GET /api/settings/api-keys/:id/reveal
func (h *APIKeyHandler) Reveal(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	masked, err := h.keys.Reveal(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": masked})
}

// PATCH /api/settings/api-keys/:id
func (h *APIKeyHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateAPIKeyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Name == nil && req.IsActive == nil {
		response.Error(c, appErrors.NewBadRequest("no fields provided for update"))
		return
	}

	key, err := h.keys.Update(requestContext(c), userID, c.Param("id"), services.UpdateAPIKeyInput{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, key)
}

// DELETE /api/settings/api-keys/:id
func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.keys.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
