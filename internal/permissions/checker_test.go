package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinwu530/querybase/internal/database/testutil"
	"github.com/kevinwu530/querybase/internal/models"
)

func seedMembership(t *testing.T, checker *Checker, role models.WorkspaceRole) (userID, workspaceID string) {
	t.Helper()

	user := models.User{Username: "alice-" + string(role), Email: string(role) + "@example.com"}
	require.NoError(t, checker.db.Create(&user).Error)

	workspace := models.Workspace{Name: "Analytics", Slug: "analytics-" + string(role), CreatedByID: user.ID}
	require.NoError(t, checker.db.Create(&workspace).Error)

	member := models.WorkspaceMember{WorkspaceID: workspace.ID, UserID: user.ID, Role: role, IsActive: true}
	require.NoError(t, checker.db.Create(&member).Error)

	return user.ID, workspace.ID
}

func TestCheckWorkspaceRoleGrants(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	ctx := context.Background()

	viewerID, wsViewer := seedMembership(t, checker, models.RoleViewer)
	editorID, wsEditor := seedMembership(t, checker, models.RoleEditor)
	adminID, wsAdmin := seedMembership(t, checker, models.RoleAdmin)

	allowed, err := checker.CheckWorkspace(ctx, viewerID, wsViewer, "conversation.view")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.CheckWorkspace(ctx, viewerID, wsViewer, "conversation.send")
	require.NoError(t, err)
	require.False(t, allowed, "viewers must not send")

	allowed, err = checker.CheckWorkspace(ctx, editorID, wsEditor, "conversation.send")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.CheckWorkspace(ctx, editorID, wsEditor, "member.invite")
	require.NoError(t, err)
	require.False(t, allowed, "editors must not invite")

	allowed, err = checker.CheckWorkspace(ctx, adminID, wsAdmin, "member.invite")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestCheckWorkspaceFailsClosed(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	ctx := context.Background()

	// Unknown user and workspace: deny, not error.
	allowed, err := checker.CheckWorkspace(ctx, "ghost", "nowhere", "workspace.view")
	require.NoError(t, err)
	require.False(t, allowed)

	// Deactivated membership: deny.
	userID, workspaceID := seedMembership(t, checker, models.RoleOwner)
	require.NoError(t, db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("is_active", false).Error)

	allowed, err = checker.CheckWorkspace(ctx, userID, workspaceID, "workspace.view")
	require.NoError(t, err)
	require.False(t, allowed)

	// Unregistered permission ID surfaces an error.
	_, err = checker.CheckWorkspace(ctx, userID, workspaceID, "workspace.teleport")
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestGrantedToExpandsImplications(t *testing.T) {
	granted := GrantedTo(models.RoleAdmin)
	require.Contains(t, granted, "member.manage")
	require.Contains(t, granted, "member.invite")
	require.Contains(t, granted, "member.view")
	require.Contains(t, granted, "workspace.view")
	require.NotContains(t, granted, "workspace.manage")

	viewer := GrantedTo(models.RoleViewer)
	require.Contains(t, viewer, "conversation.view")
	require.NotContains(t, viewer, "conversation.send")
	require.NotContains(t, viewer, "audit.view")
}

func TestGetWorkspacePermissionsSorted(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	userID, workspaceID := seedMembership(t, checker, models.RoleOwner)

	ids, err := checker.GetWorkspacePermissions(context.Background(), userID, workspaceID)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	require.IsIncreasing(t, ids)
	require.Contains(t, ids, "workspace.manage")
}
