package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
)

// Checker resolves workspace membership roles and evaluates them against the
// permission registry. Missing users, workspaces, or memberships deny rather
// than error: the oracle fails closed.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// CheckWorkspace determines whether the user's active membership in the
// workspace grants the specified permission.
func (c *Checker) CheckWorkspace(ctx context.Context, userID, workspaceID, permissionID string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	workspaceID = strings.TrimSpace(workspaceID)
	permissionID = strings.TrimSpace(permissionID)
	if userID == "" || workspaceID == "" {
		return false, nil
	}
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}

	if _, ok := Get(permissionID); !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	role, ok, err := c.MemberRole(ctx, userID, workspaceID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	_, granted := GrantedTo(role)[permissionID]
	return granted, nil
}

// MemberRole returns the role of the user's active membership, if any.
func (c *Checker) MemberRole(ctx context.Context, userID, workspaceID string) (models.WorkspaceRole, bool, error) {
	ctx = ensureContext(ctx)

	var member models.WorkspaceMember
	err := c.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ? AND is_active = ?", workspaceID, userID, true).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("permission checker: load membership: %w", err)
	}

	return member.Role, true, nil
}

// GetWorkspacePermissions returns the distinct permission IDs the user holds
// in the workspace, sorted for stable output.
func (c *Checker) GetWorkspacePermissions(ctx context.Context, userID, workspaceID string) ([]string, error) {
	role, ok, err := c.MemberRole(ensureContext(ctx), userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	granted := GrantedTo(role)
	ids := make([]string, 0, len(granted))
	for id := range granted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
