package models

import "time"

// InvitationStatus tracks the lifecycle of a workspace invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// WorkspaceInvitation represents a pending offer of membership, redeemable
// once via token before expiry. Only the token hash is ever persisted.
type WorkspaceInvitation struct {
	BaseModel

	WorkspaceID string           `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Email       string           `gorm:"not null;index" json:"email"`
	Role        WorkspaceRole    `gorm:"not null;default:viewer" json:"role"`
	InvitedByID string           `gorm:"type:uuid" json:"invited_by_id"`
	Message     string           `json:"message,omitempty"`
	TokenHash   string           `gorm:"not null;uniqueIndex" json:"-"`
	Status      InvitationStatus `gorm:"not null;default:pending;index" json:"status"`
	ExpiresAt   time.Time        `gorm:"index" json:"expires_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	InvitedBy *User      `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}
