package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
	apperrors "github.com/kevinwu530/querybase/pkg/errors"
)

var (
	// ErrWorkspaceNotFound indicates the requested workspace does not exist.
	ErrWorkspaceNotFound = apperrors.New("WORKSPACE_NOT_FOUND", "Workspace not found", http.StatusNotFound)
	// ErrWorkspaceSlugTaken signals a slug collision during creation.
	ErrWorkspaceSlugTaken = apperrors.New("WORKSPACE_SLUG_TAKEN", "Workspace slug already in use", http.StatusConflict)
)

// CreateWorkspaceInput captures new workspace metadata.
type CreateWorkspaceInput struct {
	Name        string
	Slug        string
	Description string
	CreatedByID string
}

// WorkspaceService handles workspace lifecycle. Creating a workspace also
// seats the creator as its owner member in the same transaction.
type WorkspaceService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewWorkspaceService constructs a WorkspaceService instance.
func NewWorkspaceService(db *gorm.DB, auditService *AuditService) (*WorkspaceService, error) {
	if db == nil {
		return nil, errors.New("workspace service: db is required")
	}
	return &WorkspaceService{db: db, auditService: auditService}, nil
}

// Create registers a new workspace and its owner membership atomically.
func (s *WorkspaceService) Create(ctx context.Context, input CreateWorkspaceInput) (*models.Workspace, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("workspace name is required")
	}
	creator := strings.TrimSpace(input.CreatedByID)
	if creator == "" {
		return nil, apperrors.NewBadRequest("workspace creator is required")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	workspace := &models.Workspace{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		CreatedByID: creator,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}

		member := &models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      creator,
			Role:        models.RoleOwner,
			IsActive:    true,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrWorkspaceSlugTaken
		}
		return nil, fmt.Errorf("workspace service: create workspace: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &creator,
		WorkspaceID: &workspace.ID,
		Action:      "workspace.create",
		Resource:    workspace.ID,
		Result:      "success",
		Metadata:    map[string]any{"name": workspace.Name, "slug": workspace.Slug},
	})

	return workspace, nil
}

// GetByID loads a workspace by identifier.
func (s *WorkspaceService) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	ctx = ensureContext(ctx)

	var workspace models.Workspace
	err := s.db.WithContext(ctx).First(&workspace, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("workspace service: load workspace: %w", err)
	}
	return &workspace, nil
}

// ListForUser returns every workspace in which the user holds an active membership.
func (s *WorkspaceService) ListForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	ctx = ensureContext(ctx)

	var workspaces []models.Workspace
	err := s.db.WithContext(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ? AND workspace_members.is_active = ?", userID, true).
		Order("workspaces.created_at ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("workspace service: list workspaces: %w", err)
	}
	return workspaces, nil
}

// slugify lowercases the name and collapses everything outside [a-z0-9] into
// single hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
