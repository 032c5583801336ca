package models

import "time"

// User is the minimal identity record consumed by the API. Authentication
// itself happens upstream; only the resolved user id ever reaches handlers.
type User struct {
	BaseModel

	Username    string     `gorm:"uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string     `json:"display_name"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Memberships []WorkspaceMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	APIKeys     []UserAPIKey      `gorm:"foreignKey:UserID" json:"-"`
}
