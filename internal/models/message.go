package models

import "gorm.io/datatypes"

// MessageRole identifies the author side of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Valid reports whether the role is one of the known message roles.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// Message is an immutable entry in a conversation. Assistant turns carry the
// generated SQL alongside execution metadata; the row never changes once
// written.
type Message struct {
	BaseModel

	ConversationID  string         `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role            MessageRole    `gorm:"not null" json:"role"`
	Content         string         `gorm:"not null" json:"content"`
	SQLQuery        string         `json:"sql_query,omitempty"`
	Explanation     string         `json:"explanation,omitempty"`
	Confidence      *int           `json:"confidence,omitempty"`
	ExecutionTimeMs *int           `json:"execution_time_ms,omitempty"`
	RowsAffected    *int           `json:"rows_affected,omitempty"`
	Error           string         `json:"error,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"-"`
}
