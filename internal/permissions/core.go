package permissions

import "github.com/kevinwu530/querybase/internal/models"

var (
	allRoles      = []models.WorkspaceRole{models.RoleOwner, models.RoleAdmin, models.RoleEditor, models.RoleViewer}
	editorRoles   = []models.WorkspaceRole{models.RoleOwner, models.RoleAdmin, models.RoleEditor}
	adminRoles    = []models.WorkspaceRole{models.RoleOwner, models.RoleAdmin}
	ownerOnlyRole = []models.WorkspaceRole{models.RoleOwner}
)

func init() {
	perms := []*Permission{
		{
			ID:          "workspace.view",
			Module:      "workspace",
			Roles:       allRoles,
			Description: "View workspace details",
		},
		{
			ID:          "workspace.manage",
			Module:      "workspace",
			Roles:       ownerOnlyRole,
			Implies:     []string{"workspace.view"},
			Description: "Rename or configure the workspace",
		},
		{
			ID:          "member.view",
			Module:      "members",
			Roles:       allRoles,
			Implies:     []string{"workspace.view"},
			Description: "List workspace members and pending invitations",
		},
		{
			ID:          "member.invite",
			Module:      "members",
			Roles:       adminRoles,
			Implies:     []string{"member.view"},
			Description: "Invite users into the workspace",
		},
		{
			ID:          "member.manage",
			Module:      "members",
			Roles:       adminRoles,
			Implies:     []string{"member.invite"},
			Description: "Change roles, deactivate members, revoke invitations",
		},
		{
			ID:          "connection.view",
			Module:      "connections",
			Roles:       allRoles,
			Implies:     []string{"workspace.view"},
			Description: "View database connections",
		},
		{
			ID:          "conversation.view",
			Module:      "conversations",
			Roles:       allRoles,
			Implies:     []string{"connection.view"},
			Description: "View conversations",
		},
		{
			ID:          "conversation.send",
			Module:      "conversations",
			Roles:       editorRoles,
			Implies:     []string{"conversation.view"},
			Description: "Create conversations and send messages",
		},
		{
			ID:          "conversation.delete",
			Module:      "conversations",
			Roles:       editorRoles,
			Implies:     []string{"conversation.view"},
			Description: "Soft-delete conversations",
		},
		{
			ID:          "apikey.manage",
			Module:      "apikeys",
			Roles:       allRoles,
			Description: "Manage personal AI provider credentials",
		},
		{
			ID:          "audit.view",
			Module:      "audit",
			Roles:       adminRoles,
			Implies:     []string{"workspace.view"},
			Description: "Read the workspace audit trail",
		},
	}

	for _, perm := range perms {
		mustRegister(perm)
	}
}
