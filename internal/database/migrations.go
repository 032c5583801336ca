package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.WorkspaceInvitation{},
		&models.Connection{},
		&models.Conversation{},
		&models.Message{},
		&models.UserAPIKey{},
		&models.AuditLog{},
		&models.CacheEntry{},
	); err != nil {
		return err
	}

	return ensurePartialIndexes(db)
}

// ensurePartialIndexes installs the partial unique indexes that backstop the
// application-level invariants: at most one active, non-deleted conversation
// per (connection_id, created_by_id) pair, and at most one pending invitation
// per (workspace_id, email). MySQL lacks partial indexes, so there the
// invariants rest on the guarded transactions alone.
func ensurePartialIndexes(db *gorm.DB) error {
	dialect := strings.ToLower(db.Dialector.Name())
	if dialect != "sqlite" && dialect != "postgres" {
		return nil
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_conversations_active
			ON conversations (connection_id, created_by_id)
			WHERE is_active AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_invitations_pending
			ON workspace_invitations (workspace_id, email)
			WHERE status = 'pending'`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}

// SeedData is a hook for inserting default rows during start-up. The schema
// has no static reference data today; membership roles are plain enums.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return nil
}
