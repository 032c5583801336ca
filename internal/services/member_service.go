package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/pkg/crypto"
	apperrors "github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/logger"
	"github.com/kevinwu530/querybase/pkg/mail"
	"github.com/kevinwu530/querybase/pkg/metrics"
)

const (
	defaultInviteExpiry     = 7 * 24 * time.Hour
	defaultInviteTokenBytes = 48

	maxMemberPageSize     = 100
	defaultMemberPageSize = 25
)

var (
	// ErrAlreadyMember signals the email already belongs to an active member.
	ErrAlreadyMember = apperrors.New("MEMBER_EXISTS", "User is already a member of this workspace", http.StatusConflict)
	// ErrAlreadyInvited signals a pending invitation already exists for the email.
	ErrAlreadyInvited = apperrors.New("INVITATION_PENDING", "An invitation for this email is already pending", http.StatusConflict)
	// ErrInvitationNotFound indicates no redeemable invitation matches the token.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationExpired indicates the invitation token has passed its expiry.
	ErrInvitationExpired = apperrors.New("INVITATION_EXPIRED", "Invitation has expired", http.StatusGone)
	// ErrInvitationUsed signals that the invitation has already been accepted.
	ErrInvitationUsed = apperrors.New("INVITATION_USED", "Invitation has already been accepted", http.StatusConflict)
)

// MemberOption customises MemberService behaviour.
type MemberOption func(*MemberService)

// WithInviteBaseURL configures the base URL used to build invitation links.
func WithInviteBaseURL(url string) MemberOption {
	return func(s *MemberService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invitation token lifetime.
func WithInviteExpiry(d time.Duration) MemberOption {
	return func(s *MemberService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithMemberClock injects a custom clock primarily for testing.
func WithMemberClock(clock func() time.Time) MemberOption {
	return func(s *MemberService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// MemberService manages workspace memberships and the invitation lifecycle.
type MemberService struct {
	db           *gorm.DB
	auditService *AuditService
	mailer       mail.Mailer
	baseURL      string
	expiry       time.Duration
	tokenLength  int
	now          func() time.Time
}

// NewMemberService constructs a MemberService with the provided dependencies.
func NewMemberService(db *gorm.DB, auditService *AuditService, mailer mail.Mailer, opts ...MemberOption) (*MemberService, error) {
	if db == nil {
		return nil, errors.New("member service: db is required")
	}

	service := &MemberService{
		db:           db,
		auditService: auditService,
		mailer:       mailer,
		expiry:       defaultInviteExpiry,
		tokenLength:  defaultInviteTokenBytes,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// MemberSummary is a membership row joined with the member's identity.
type MemberSummary struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	Username    string               `json:"username"`
	Email       string               `json:"email"`
	DisplayName string               `json:"display_name"`
	Role        models.WorkspaceRole `json:"role"`
	JoinedAt    time.Time            `json:"joined_at"`
}

// ListMembersOptions controls pagination and ordering for member listings.
type ListMembersOptions struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

var memberSortColumns = map[string]string{
	"joined_at": "workspace_members.created_at",
	"role":      "workspace_members.role",
	"name":      "users.username",
}

// ListMembers returns the workspace's active members joined with user
// identity, plus its pending invitations.
func (s *MemberService) ListMembers(ctx context.Context, workspaceID string, opts ListMembersOptions) ([]MemberSummary, []models.WorkspaceInvitation, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMemberPageSize
	}
	if limit > maxMemberPageSize {
		limit = maxMemberPageSize
	}

	column, ok := memberSortColumns[strings.ToLower(strings.TrimSpace(opts.Sort))]
	if !ok {
		column = memberSortColumns["joined_at"]
	}
	direction := "ASC"
	if strings.EqualFold(opts.Order, "desc") {
		direction = "DESC"
	}

	base := s.db.WithContext(ctx).
		Model(&models.WorkspaceMember{}).
		Joins("JOIN users ON users.id = workspace_members.user_id").
		Where("workspace_members.workspace_id = ? AND workspace_members.is_active = ?", workspaceID, true)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, nil, 0, fmt.Errorf("member service: count members: %w", err)
	}

	var members []MemberSummary
	if err := base.
		Select("workspace_members.id AS id",
			"workspace_members.user_id AS user_id",
			"users.username AS username",
			"users.email AS email",
			"users.display_name AS display_name",
			"workspace_members.role AS role",
			"workspace_members.created_at AS joined_at").
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&members).Error; err != nil {
		return nil, nil, 0, fmt.Errorf("member service: list members: %w", err)
	}

	var invitations []models.WorkspaceInvitation
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND status = ?", workspaceID, models.InvitationPending).
		Order("created_at ASC").
		Find(&invitations).Error; err != nil {
		return nil, nil, 0, fmt.Errorf("member service: list invitations: %w", err)
	}

	return members, invitations, total, nil
}

// InviteInput carries the parameters of a new invitation.
type InviteInput struct {
	Email   string
	Role    models.WorkspaceRole
	Message string
}

// Invite issues a new invitation after the ordered conflict checks: an
// existing active membership always wins over a stale pending invitation, so
// a user who is already a member is never told "already invited".
func (s *MemberService) Invite(ctx context.Context, workspaceID, inviterID string, input InviteInput) (*models.WorkspaceInvitation, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	role := input.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !role.Valid() || role == models.RoleOwner {
		return nil, apperrors.NewBadRequest("role must be one of admin, editor, viewer")
	}

	var workspace models.Workspace
	if err := s.db.WithContext(ctx).First(&workspace, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("member service: load workspace: %w", err)
	}

	// Check 1: active membership for this email.
	var memberCount int64
	if err := s.db.WithContext(ctx).
		Model(&models.WorkspaceMember{}).
		Joins("JOIN users ON users.id = workspace_members.user_id").
		Where("workspace_members.workspace_id = ? AND workspace_members.is_active = ? AND LOWER(users.email) = ?",
			workspaceID, true, email).
		Count(&memberCount).Error; err != nil {
		return nil, fmt.Errorf("member service: check membership: %w", err)
	}
	if memberCount > 0 {
		return nil, ErrAlreadyMember
	}

	now := s.now()

	// Check 2: pending invitation for this email. Overdue rows are lazily
	// flipped to expired and do not block a fresh invitation.
	var pending models.WorkspaceInvitation
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND email = ? AND status = ?", workspaceID, email, models.InvitationPending).
		First(&pending).Error
	switch {
	case err == nil:
		if pending.ExpiresAt.After(now) {
			return nil, ErrAlreadyInvited
		}
		if err := s.db.WithContext(ctx).
			Model(&pending).
			Update("status", models.InvitationExpired).Error; err != nil {
			return nil, fmt.Errorf("member service: expire stale invitation: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No pending invitation; proceed.
	default:
		return nil, fmt.Errorf("member service: check invitation: %w", err)
	}

	rawToken, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("member service: generate token: %w", err)
	}

	invitation := models.WorkspaceInvitation{
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        role,
		InvitedByID: strings.TrimSpace(inviterID),
		Message:     strings.TrimSpace(input.Message),
		TokenHash:   tokenHash(rawToken),
		Status:      models.InvitationPending,
		ExpiresAt:   now.Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyInvited
		}
		return nil, fmt.Errorf("member service: create invitation: %w", err)
	}

	s.sendInviteMail(ctx, &workspace, &invitation, rawToken)

	metrics.InvitationsIssued.WithLabelValues(string(role)).Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &invitation.InvitedByID,
		WorkspaceID: &invitation.WorkspaceID,
		Action:      "member.invite",
		Resource:    invitation.ID,
		Result:      "success",
		Metadata:    map[string]any{"email": email, "role": string(role)},
	})

	return &invitation, nil
}

// Redeem validates the invitation token and, within one transaction, marks
// the invitation accepted and creates or reactivates the membership row.
func (s *MemberService) Redeem(ctx context.Context, token, userID string) (*models.WorkspaceMember, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("token is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var invitation models.WorkspaceInvitation
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash(token)).
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("member service: find invitation: %w", err)
	}

	now := s.now()
	switch invitation.Status {
	case models.InvitationAccepted:
		return nil, ErrInvitationUsed
	case models.InvitationRevoked:
		// Revoked tokens are indistinguishable from unknown ones.
		return nil, ErrInvitationNotFound
	case models.InvitationExpired:
		return nil, ErrInvitationExpired
	}

	if !invitation.ExpiresAt.After(now) {
		if err := s.db.WithContext(ctx).
			Model(&invitation).
			Update("status", models.InvitationExpired).Error; err != nil {
			return nil, fmt.Errorf("member service: expire invitation: %w", err)
		}
		return nil, ErrInvitationExpired
	}

	var member models.WorkspaceMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.WorkspaceInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Updates(map[string]any{"status": models.InvitationAccepted, "accepted_at": now}).Error; err != nil {
			return err
		}

		err := tx.Where("workspace_id = ? AND user_id = ?", invitation.WorkspaceID, userID).
			First(&member).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.WorkspaceMember{
				WorkspaceID: invitation.WorkspaceID,
				UserID:      userID,
				Role:        invitation.Role,
				IsActive:    true,
			}
			return tx.Create(&member).Error
		case err != nil:
			return err
		default:
			member.Role = invitation.Role
			member.IsActive = true
			return tx.Model(&member).
				Updates(map[string]any{"role": invitation.Role, "is_active": true}).Error
		}
	})
	if err != nil {
		return nil, fmt.Errorf("member service: redeem invitation: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &userID,
		WorkspaceID: &invitation.WorkspaceID,
		Action:      "member.join",
		Resource:    member.ID,
		Result:      "success",
		Metadata:    map[string]any{"invitation_id": invitation.ID, "role": string(invitation.Role)},
	})

	return &member, nil
}

// Revoke cancels a pending invitation.
func (s *MemberService) Revoke(ctx context.Context, workspaceID, invitationID, actorID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.WorkspaceInvitation{}).
		Where("id = ? AND workspace_id = ? AND status = ?", invitationID, workspaceID, models.InvitationPending).
		Update("status", models.InvitationRevoked)
	if result.Error != nil {
		return fmt.Errorf("member service: revoke invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &actorID,
		WorkspaceID: &workspaceID,
		Action:      "member.invite_revoke",
		Resource:    invitationID,
		Result:      "success",
	})

	return nil
}

// ExpireOverdue flips every overdue pending invitation to expired. Called by
// the maintenance sweeper; redemption also checks lazily, so this only keeps
// listings tidy.
func (s *MemberService) ExpireOverdue(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.WorkspaceInvitation{}).
		Where("status = ? AND expires_at <= ?", models.InvitationPending, s.now()).
		Update("status", models.InvitationExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("member service: expire invitations: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *MemberService) sendInviteMail(ctx context.Context, workspace *models.Workspace, invitation *models.WorkspaceInvitation, rawToken string) {
	if s.mailer == nil {
		return
	}

	link := rawToken
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, rawToken)
	}

	message := mail.Message{
		To:      []string{invitation.Email},
		Subject: fmt.Sprintf("You're invited to the %s workspace", workspace.Name),
		Body:    inviteBody(workspace.Name, link, invitation.Message),
	}

	// Delivery failure never rolls back the invitation; the link can be
	// resent later.
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.WithModule("members").Warn("invitation email failed",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err),
		)
	}
}

func inviteBody(workspaceName, link, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nYou have been invited to join the %s workspace on QueryBase.\n", workspaceName)
	if note != "" {
		fmt.Fprintf(&b, "\n%s\n", note)
	}
	fmt.Fprintf(&b, "\nUse the following link to accept your invitation:\n%s\n\nIf you did not expect this email, you can ignore it.\n", link)
	return b.String()
}

func tokenHash(token string) string {
	checksum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(checksum[:])
}
