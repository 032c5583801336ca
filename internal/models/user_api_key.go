package models

import "time"

// APIKeyProvider enumerates the AI providers a user can store credentials for.
type APIKeyProvider string

const (
	ProviderGemini    APIKeyProvider = "gemini"
	ProviderOpenAI    APIKeyProvider = "openai"
	ProviderAnthropic APIKeyProvider = "anthropic"
)

// Valid reports whether the provider is supported.
func (p APIKeyProvider) Valid() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return true
	}
	return false
}

// UserAPIKey stores a user's encrypted credential for one AI provider.
// The plaintext key is never persisted; KeyHash is a one-way fingerprint
// used for duplicate detection and can not be reversed.
type UserAPIKey struct {
	BaseModel

	UserID       string         `gorm:"type:uuid;not null;uniqueIndex:ux_user_provider" json:"user_id"`
	Provider     APIKeyProvider `gorm:"not null;uniqueIndex:ux_user_provider" json:"provider"`
	Name         string         `gorm:"not null" json:"name"`
	EncryptedKey string         `gorm:"not null" json:"-"`
	KeyHash      string         `gorm:"not null;index" json:"-"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastUsedAt   *time.Time     `json:"last_used_at,omitempty"`
	UsageCount   int            `gorm:"default:0" json:"usage_count"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
