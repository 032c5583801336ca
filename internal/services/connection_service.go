package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
	apperrors "github.com/kevinwu530/querybase/pkg/errors"
)

// ErrConnectionNameTaken signals a duplicate connection name in a workspace.
var ErrConnectionNameTaken = apperrors.New("CONNECTION_NAME_TAKEN", "A connection with this name already exists in the workspace", http.StatusConflict)

// ConnectionService maintains the per-workspace registry of database targets
// that conversations run against.
type ConnectionService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewConnectionService constructs a ConnectionService instance.
func NewConnectionService(db *gorm.DB, auditService *AuditService) (*ConnectionService, error) {
	if db == nil {
		return nil, errors.New("connection service: db is required")
	}
	return &ConnectionService{db: db, auditService: auditService}, nil
}

// CreateConnectionInput carries new connection metadata.
type CreateConnectionInput struct {
	WorkspaceID string
	Name        string
	Driver      string
	Host        string
	Port        int
	Database    string
	CreatedByID string
}

// Create registers a connection in a workspace. Names are unique per
// workspace, compared case-insensitively.
func (s *ConnectionService) Create(ctx context.Context, input CreateConnectionInput) (*models.Connection, error) {
	ctx = ensureContext(ctx)

	if err := validateConnectionInput(input); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("workspace_id = ? AND LOWER(name) = LOWER(?)", input.WorkspaceID, name).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("connection service: check name: %w", err)
	}
	if count > 0 {
		return nil, ErrConnectionNameTaken
	}

	connection := &models.Connection{
		WorkspaceID: input.WorkspaceID,
		Name:        name,
		Driver:      strings.ToLower(strings.TrimSpace(input.Driver)),
		Host:        strings.TrimSpace(input.Host),
		Port:        input.Port,
		Database:    strings.TrimSpace(input.Database),
		CreatedByID: input.CreatedByID,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(connection).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrConnectionNameTaken
		}
		return nil, fmt.Errorf("connection service: create connection: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &connection.CreatedByID,
		WorkspaceID: &connection.WorkspaceID,
		Action:      "connection.create",
		Resource:    connection.ID,
		Result:      "success",
	})

	return connection, nil
}

// List returns a workspace's connections ordered by name.
func (s *ConnectionService) List(ctx context.Context, workspaceID string) ([]models.Connection, error) {
	ctx = ensureContext(ctx)

	var connections []models.Connection
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name ASC").
		Find(&connections).Error; err != nil {
		return nil, fmt.Errorf("connection service: list connections: %w", err)
	}
	return connections, nil
}

// Get loads one connection scoped to a workspace.
func (s *ConnectionService) Get(ctx context.Context, workspaceID, id string) (*models.Connection, error) {
	ctx = ensureContext(ctx)

	var connection models.Connection
	err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&connection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("connection service: load connection: %w", err)
	}
	return &connection, nil
}

func validateConnectionInput(input CreateConnectionInput) error {
	var details []apperrors.FieldError
	if strings.TrimSpace(input.Name) == "" {
		details = append(details, apperrors.FieldError{Field: "name", Message: "is required"})
	}
	if strings.TrimSpace(input.Driver) == "" {
		details = append(details, apperrors.FieldError{Field: "driver", Message: "is required"})
	}
	if input.Port < 0 || input.Port > 65535 {
		details = append(details, apperrors.FieldError{Field: "port", Message: "must be between 0 and 65535"})
	}
	if len(details) > 0 {
		return apperrors.NewValidation(details)
	}
	return nil
}
