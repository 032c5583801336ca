package models

// Connection describes a database connection that conversations run against.
// Credentials for reaching the database live outside this table; QueryBase
// only needs enough metadata to identify and display the target.
type Connection struct {
	BaseModel

	WorkspaceID string `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Name        string `gorm:"not null" json:"name"`
	Driver      string `gorm:"not null" json:"driver"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	CreatedByID string `gorm:"type:uuid" json:"created_by_id"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
}
