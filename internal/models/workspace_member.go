package models

// WorkspaceRole enumerates the roles a member can hold within a workspace.
type WorkspaceRole string

const (
	RoleOwner  WorkspaceRole = "owner"
	RoleAdmin  WorkspaceRole = "admin"
	RoleEditor WorkspaceRole = "editor"
	RoleViewer WorkspaceRole = "viewer"
)

// Valid reports whether the role is one of the known workspace roles.
func (r WorkspaceRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// WorkspaceMember records a user's role-bearing presence in a workspace.
// Rows are deactivated rather than deleted so the audit trail stays intact.
type WorkspaceMember struct {
	BaseModel

	WorkspaceID string        `gorm:"type:uuid;not null;uniqueIndex:ux_workspace_user" json:"workspace_id"`
	UserID      string        `gorm:"type:uuid;not null;uniqueIndex:ux_workspace_user" json:"user_id"`
	Role        WorkspaceRole `gorm:"not null;default:viewer" json:"role"`
	IsActive    bool          `gorm:"default:true;index" json:"is_active"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
