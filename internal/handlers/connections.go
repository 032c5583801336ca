package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/services"
	appErrors "github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/response"
)

type ConnectionHandler struct {
	connections *services.ConnectionService
}

func NewConnectionHandler(connections *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

type createConnectionRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=128"`
	Driver   string `json:"driver" validate:"required,oneof=postgres mysql sqlite"`
	Host     string `json:"host" validate:"omitempty,max=255"`
	Port     int    `json:"port" validate:"omitempty,min=0,max=65535"`
	Database string `json:"database" validate:"omitempty,max=128"`
}

// GET /api/workspaces/:id/connections
func (h *ConnectionHandler) List(c *gin.Context) {
	connections, err := h.connections.List(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, connections)
}

// POST /api/workspaces/:id/connections
func (h *ConnectionHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createConnectionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	connection, err := h.connections.Create(requestContext(c), services.CreateConnectionInput{
		WorkspaceID: c.Param("id"),
		Name:        req.Name,
		Driver:      req.Driver,
		Host:        req.Host,
		Port:        req.Port,
		Database:    req.Database,
		CreatedByID: userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, connection)
}
