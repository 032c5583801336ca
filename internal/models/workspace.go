package models

import "gorm.io/datatypes"

// Workspace is the tenant boundary grouping users, connections, and conversations.
type Workspace struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `json:"description"`
	CreatedByID string         `gorm:"type:uuid;index" json:"created_by_id"`
	Settings    datatypes.JSON `json:"settings,omitempty"`

	Members     []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Connections []Connection      `gorm:"foreignKey:WorkspaceID" json:"connections,omitempty"`
}
