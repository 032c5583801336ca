package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/handlers"
)

func registerConversationRoutes(api *gin.RouterGroup, svcs *routerServices) {
	conversationHandler := handlers.NewConversationHandler(svcs.conversations)

	// Access control on individual conversations lives in the service:
	// the creator always passes, other callers need workspace membership.
	conversations := api.Group("/conversations")
	{
		conversations.GET("/:id", conversationHandler.Get)
		conversations.DELETE("/:id", conversationHandler.Delete)
		conversations.GET("/:id/messages", conversationHandler.ListMessages)
		conversations.POST("/:id/messages", conversationHandler.AppendMessage)
	}
}
