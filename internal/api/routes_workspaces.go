package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/handlers"
	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/permissions"
)

func registerWorkspaceRoutes(api *gin.RouterGroup, checker *permissions.Checker, svcs *routerServices) {
	workspaceHandler := handlers.NewWorkspaceHandler(svcs.workspaces)
	memberHandler := handlers.NewMemberHandler(svcs.members)
	connectionHandler := handlers.NewConnectionHandler(svcs.connections)
	conversationHandler := handlers.NewConversationHandler(svcs.conversations)

	workspaces := api.Group("/workspaces")
	{
		workspaces.GET("", workspaceHandler.List)
		workspaces.POST("", workspaceHandler.Create)
		workspaces.GET("/:id", middleware.RequireWorkspacePermission(checker, "workspace.view"), workspaceHandler.Get)

		workspaces.GET("/:id/members", middleware.RequireWorkspacePermission(checker, "member.view"), memberHandler.List)
		workspaces.POST("/:id/members", middleware.RequireWorkspacePermission(checker, "member.invite"), memberHandler.Invite)
		workspaces.GET("/:id/invitations", middleware.RequireWorkspacePermission(checker, "member.view"), memberHandler.ListInvitations)
		workspaces.DELETE("/:id/invitations/:invitationID", middleware.RequireWorkspacePermission(checker, "member.manage"), memberHandler.Revoke)

		workspaces.GET("/:id/connections", middleware.RequireWorkspacePermission(checker, "connection.view"), connectionHandler.List)
		workspaces.POST("/:id/connections", middleware.RequireWorkspacePermission(checker, "member.manage"), connectionHandler.Create)

		workspaces.GET("/:id/conversations", middleware.RequireWorkspacePermission(checker, "conversation.view"), conversationHandler.List)
		workspaces.POST("/:id/conversations", middleware.RequireWorkspacePermission(checker, "conversation.send"), conversationHandler.Create)
	}
}
