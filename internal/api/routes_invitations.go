package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/handlers"
)

func registerInvitationRoutes(api *gin.RouterGroup, svcs *routerServices) {
	memberHandler := handlers.NewMemberHandler(svcs.members)

	api.POST("/invitations/accept", memberHandler.Accept)
}
