package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/permissions"
	apperrors "github.com/kevinwu530/querybase/pkg/errors"
	"github.com/kevinwu530/querybase/pkg/metrics"
)

var (
	// ErrConversationNotFound covers both missing and soft-deleted conversations.
	ErrConversationNotFound = apperrors.New("CONVERSATION_NOT_FOUND", "Conversation not found", http.StatusNotFound)
	// ErrConnectionNotFound indicates the referenced connection does not exist in the workspace.
	ErrConnectionNotFound = apperrors.New("CONNECTION_NOT_FOUND", "Connection not found", http.StatusNotFound)
)

// ConversationService owns the conversation activity state machine. A user
// message promotes its conversation to active and demotes every sibling on
// the same (connection, creator) pair inside one transaction; the partial
// unique index installed during migration is the storage-level backstop.
type ConversationService struct {
	db           *gorm.DB
	auditService *AuditService
	checker      *permissions.Checker
	now          func() time.Time
}

// NewConversationService constructs a ConversationService instance.
func NewConversationService(db *gorm.DB, auditService *AuditService, checker *permissions.Checker) (*ConversationService, error) {
	if db == nil {
		return nil, errors.New("conversation service: db is required")
	}
	if checker == nil {
		return nil, errors.New("conversation service: permission checker is required")
	}
	return &ConversationService{
		db:           db,
		auditService: auditService,
		checker:      checker,
		now:          time.Now,
	}, nil
}

// CreateConversationInput captures new conversation parameters.
type CreateConversationInput struct {
	WorkspaceID  string
	ConnectionID string
	CreatedByID  string
	Title        string
	Activate     bool
}

// Create starts a new conversation, inactive unless activation is requested.
func (s *ConversationService) Create(ctx context.Context, input CreateConversationInput) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	var connection models.Connection
	err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", input.ConnectionID, input.WorkspaceID).
		First(&connection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation service: load connection: %w", err)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled conversation"
	}

	conversation := &models.Conversation{
		WorkspaceID:  input.WorkspaceID,
		ConnectionID: input.ConnectionID,
		CreatedByID:  input.CreatedByID,
		Title:        title,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Activate {
			if err := demoteSiblings(tx, input.ConnectionID, input.CreatedByID, ""); err != nil {
				return err
			}
			conversation.IsActive = true
		}
		return tx.Create(conversation).Error
	})
	if err != nil {
		return nil, fmt.Errorf("conversation service: create conversation: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &conversation.CreatedByID,
		WorkspaceID: &conversation.WorkspaceID,
		Action:      "conversation.create",
		Resource:    conversation.ID,
		Result:      "success",
	})

	return conversation, nil
}

// Get loads a non-deleted conversation visible to the caller.
func (s *ConversationService) Get(ctx context.Context, id, callerID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	conversation, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, conversation, callerID); err != nil {
		return nil, err
	}

	return conversation, nil
}

// List returns the caller's non-deleted conversations in a workspace, most
// recent activity first. A connection id narrows the listing when supplied.
func (s *ConversationService) List(ctx context.Context, workspaceID, connectionID, callerID string) ([]models.Conversation, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Where("workspace_id = ? AND created_by_id = ? AND deleted_at IS NULL", workspaceID, callerID)
	if connectionID != "" {
		query = query.Where("connection_id = ?", connectionID)
	}

	var conversations []models.Conversation
	if err := query.
		Order("last_activity_at DESC").
		Order("created_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list conversations: %w", err)
	}
	return conversations, nil
}

// Delete soft-deletes a conversation, clearing its active flag in the same
// update so deleted rows never stale-count against the uniqueness backstop.
func (s *ConversationService) Delete(ctx context.Context, id, callerID string) error {
	ctx = ensureContext(ctx)

	conversation, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, conversation, callerID); err != nil {
		return err
	}
	if conversation.CreatedByID != callerID {
		allowed, err := s.checker.CheckWorkspace(ctx, callerID, conversation.WorkspaceID, "conversation.delete")
		if err != nil {
			return fmt.Errorf("conversation service: check permission: %w", err)
		}
		if !allowed {
			return apperrors.ErrForbidden
		}
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": now, "is_active": false}).Error; err != nil {
		return fmt.Errorf("conversation service: delete conversation: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:      &callerID,
		WorkspaceID: &conversation.WorkspaceID,
		Action:      "conversation.delete",
		Resource:    conversation.ID,
		Result:      "success",
	})

	return nil
}

// AppendMessageInput carries one message to persist.
type AppendMessageInput struct {
	Role            models.MessageRole
	Content         string
	SQLQuery        string
	Explanation     string
	Confidence      *int
	ExecutionTimeMs *int
	RowsAffected    *int
	Error           string
	Metadata        map[string]any
}

// AppendMessage persists an immutable message and drives the activity state
// machine. User messages promote the conversation and demote its siblings
// atomically; assistant and system messages only bump activity counters.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID, callerID string, input AppendMessageInput) (*models.Message, *models.Conversation, error) {
	ctx = ensureContext(ctx)

	conversation, err := s.loadLive(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.authorize(ctx, conversation, callerID); err != nil {
		return nil, nil, err
	}

	if err := validateMessageInput(input); err != nil {
		return nil, nil, err
	}

	message := &models.Message{
		ConversationID:  conversation.ID,
		Role:            input.Role,
		Content:         input.Content,
		SQLQuery:        strings.TrimSpace(input.SQLQuery),
		Explanation:     strings.TrimSpace(input.Explanation),
		Confidence:      input.Confidence,
		ExecutionTimeMs: input.ExecutionTimeMs,
		RowsAffected:    input.RowsAffected,
		Error:           strings.TrimSpace(input.Error),
	}
	if len(input.Metadata) > 0 {
		encoded, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, nil, apperrors.NewBadRequest("metadata must be JSON-encodable")
		}
		message.Metadata = datatypes.JSON(encoded)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"message_count":    gorm.Expr("message_count + 1"),
			"last_activity_at": now,
		}
		if input.Role == models.MessageRoleUser {
			// Demote first so the backstop index never sees two active rows.
			if err := demoteSiblings(tx, conversation.ConnectionID, conversation.CreatedByID, conversation.ID); err != nil {
				return err
			}
			updates["is_active"] = true
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversation.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("conversation service: append message: %w", err)
	}

	metrics.MessagesAppended.WithLabelValues(string(input.Role)).Inc()
	if input.Role == models.MessageRoleUser {
		metrics.ConversationActivations.Inc()
	}

	refreshed, err := s.loadLive(ctx, conversation.ID)
	if err != nil {
		return nil, nil, err
	}

	return message, refreshed, nil
}

// ListMessages returns the conversation's messages oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, callerID string) ([]models.Message, error) {
	ctx = ensureContext(ctx)

	conversation, err := s.loadLive(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, conversation, callerID); err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list messages: %w", err)
	}
	return messages, nil
}

// loadLive fetches a conversation, treating soft-deleted rows as missing.
func (s *ConversationService) loadLive(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation service: load conversation: %w", err)
	}
	return &conversation, nil
}

// authorize admits the conversation's creator and any active workspace member.
func (s *ConversationService) authorize(ctx context.Context, conversation *models.Conversation, callerID string) error {
	if callerID == "" {
		return apperrors.ErrUnauthorized
	}
	if conversation.CreatedByID == callerID {
		return nil
	}

	_, ok, err := s.checker.MemberRole(ctx, callerID, conversation.WorkspaceID)
	if err != nil {
		return fmt.Errorf("conversation service: resolve membership: %w", err)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// demoteSiblings clears the active flag on every other non-deleted
// conversation sharing the (connection, creator) pair.
func demoteSiblings(tx *gorm.DB, connectionID, createdByID, excludeID string) error {
	query := tx.Model(&models.Conversation{}).
		Where("connection_id = ? AND created_by_id = ? AND deleted_at IS NULL AND is_active = ?",
			connectionID, createdByID, true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	return query.Update("is_active", false).Error
}

func validateMessageInput(input AppendMessageInput) error {
	var details []apperrors.FieldError

	if !input.Role.Valid() {
		details = append(details, apperrors.FieldError{Field: "role", Message: "must be one of user, assistant, system"})
	}
	if strings.TrimSpace(input.Content) == "" {
		details = append(details, apperrors.FieldError{Field: "content", Message: "is required"})
	}
	if input.Confidence != nil && (*input.Confidence < 0 || *input.Confidence > 100) {
		details = append(details, apperrors.FieldError{Field: "confidence", Message: "must be between 0 and 100"})
	}
	if input.ExecutionTimeMs != nil && *input.ExecutionTimeMs < 0 {
		details = append(details, apperrors.FieldError{Field: "execution_time_ms", Message: "must not be negative"})
	}
	if input.RowsAffected != nil && *input.RowsAffected < 0 {
		details = append(details, apperrors.FieldError{Field: "rows_affected", Message: "must not be negative"})
	}

	if len(details) > 0 {
		return apperrors.NewValidation(details)
	}
	return nil
}
