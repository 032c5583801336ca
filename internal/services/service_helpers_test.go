package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/database/testutil"
	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/pkg/mail"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

// captureMailer records messages instead of delivering them.
type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    email,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedWorkspace(t *testing.T, db *gorm.DB, name, slug, ownerID string) *models.Workspace {
	t.Helper()
	workspace := &models.Workspace{
		Name:        name,
		Slug:        slug,
		CreatedByID: ownerID,
	}
	require.NoError(t, db.Create(workspace).Error)
	require.NoError(t, db.Create(&models.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      ownerID,
		Role:        models.RoleOwner,
		IsActive:    true,
	}).Error)
	return workspace
}

func seedMember(t *testing.T, db *gorm.DB, workspaceID, userID string, role models.WorkspaceRole) *models.WorkspaceMember {
	t.Helper()
	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		IsActive:    true,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func seedConnection(t *testing.T, db *gorm.DB, workspaceID, createdByID, name string) *models.Connection {
	t.Helper()
	connection := &models.Connection{
		WorkspaceID: workspaceID,
		Name:        name,
		Driver:      "postgres",
		Host:        "localhost",
		Port:        5432,
		Database:    "analytics",
		CreatedByID: createdByID,
		IsActive:    true,
	}
	require.NoError(t, db.Create(connection).Error)
	return connection
}
