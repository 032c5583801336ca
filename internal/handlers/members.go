package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/services"
	appErrors "github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/response"
)

type MemberHandler struct {
	members *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

type inviteMemberRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Role    string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
	Message string `json:"message" validate:"omitempty,max=1024"`
}

type acceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

type memberListResponse struct {
	Members     []services.MemberSummary     `json:"members"`
	Invitations []models.WorkspaceInvitation `json:"invitations"`
}

// GET /api/workspaces/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	opts := services.ListMembersOptions{
		Page:  parseIntQuery(c, "page", 1),
		Limit: parseIntQuery(c, "limit", 0),
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
	}

	members, invitations, total, err := h.members.ListMembers(requestContext(c), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := &response.Meta{Page: opts.Page, Total: int(total)}
	response.SuccessWithMeta(c, http.StatusOK, memberListResponse{
		Members:     members,
		Invitations: invitations,
	}, meta)
}

// POST /api/workspaces/:id/members
func (h *MemberHandler) Invite(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req inviteMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.members.Invite(requestContext(c), c.Param("id"), userID, services.InviteInput{
		Email:   req.Email,
		Role:    models.WorkspaceRole(strings.TrimSpace(req.Role)),
		Message: req.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/workspaces/:id/invitations
func (h *MemberHandler) ListInvitations(c *gin.Context) {
	_, invitations, _, err := h.members.ListMembers(requestContext(c), c.Param("id"), services.ListMembersOptions{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invitations)
}

// DELETE /api/workspaces/:id/invitations/:invitationID
func (h *MemberHandler) Revoke(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	err := h.members.Revoke(requestContext(c), c.Param("id"), c.Param("invitationID"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// POST /api/invitations/accept
func (h *MemberHandler) Accept(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req acceptInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.members.Redeem(requestContext(c), req.Token, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}
