package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/handlers"
	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/permissions"
)

func registerAuditRoutes(api *gin.RouterGroup, checker *permissions.Checker, svcs *routerServices) {
	auditHandler := handlers.NewAuditHandler(svcs.audit)

	api.GET("/workspaces/:id/audit", middleware.RequireWorkspacePermission(checker, "audit.view"), auditHandler.List)
}
