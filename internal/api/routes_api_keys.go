package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/handlers"
)

func registerAPIKeyRoutes(api *gin.RouterGroup, svcs *routerServices) {
	keyHandler := handlers.NewAPIKeyHandler(svcs.apiKeys)

	keys := api.Group("/settings/api-keys")
	{
		keys.GET("", keyHandler.List)
		keys.POST("", keyHandler.Upsert)
		keys.GET("/:id/reveal", keyHandler.Reveal)
		keys.PATCH("/:id", keyHandler.Update)
		keys.DELETE("/:id", keyHandler.Delete)
	}
}
