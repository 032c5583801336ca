package models

import "time"

// Conversation is a thread of messages tied to one database connection and
// one creating user. At most one non-deleted conversation per
// (connection_id, created_by_id) pair may be active at a time; the partial
// unique index created during migration backstops the application-level
// transaction that maintains the flag.
type Conversation struct {
	BaseModel

	WorkspaceID    string     `gorm:"type:uuid;not null;index" json:"workspace_id"`
	ConnectionID   string     `gorm:"type:uuid;not null;index:idx_conversations_conn_user" json:"connection_id"`
	CreatedByID    string     `gorm:"type:uuid;not null;index:idx_conversations_conn_user" json:"created_by_id"`
	Title          string     `json:"title"`
	IsActive       bool       `gorm:"default:false;index" json:"is_active"`
	MessageCount   int        `gorm:"default:0" json:"message_count"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	DeletedAt      *time.Time `gorm:"index" json:"-"`

	Workspace  *Workspace  `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Connection *Connection `gorm:"foreignKey:ConnectionID" json:"connection,omitempty"`
	Messages   []Message   `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Deleted reports whether the conversation has been soft-deleted.
func (c *Conversation) Deleted() bool {
	return c != nil && c.DeletedAt != nil
}
