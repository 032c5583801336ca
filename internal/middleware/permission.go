package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/permissions"
	"github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/metrics"
	"github.com/kevinwu530/querybase/pkg/response"
)

// RequireWorkspacePermission checks that the authenticated user holds the
// permission inside the workspace named by the :id route parameter. Checks
// fail closed: missing membership and unknown workspaces both deny.
func RequireWorkspacePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)
		workspaceID := c.Param("id")

		allowed, err := checker.CheckWorkspace(c.Request.Context(), userID, workspaceID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}
