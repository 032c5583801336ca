package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/services"
	"github.com/kevinwu530/querybase/pkg/response"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/workspaces/:id/audit
func (h *AuditHandler) List(c *gin.Context) {
	filters := services.AuditFilters{
		WorkspaceID: c.Param("id"),
		UserID:      strings.TrimSpace(c.Query("user_id")),
		Action:      strings.TrimSpace(c.Query("action")),
		Result:      strings.TrimSpace(c.Query("result")),
	}
	if since := parseTimeQuery(c, "since"); since != nil {
		filters.Since = since
	}
	if until := parseTimeQuery(c, "until"); until != nil {
		filters.Until = until
	}

	logs, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "limit", 50),
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:  parseIntQuery(c, "page", 1),
		Total: int(total),
	})
}

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
