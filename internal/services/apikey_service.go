package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/vault"
	apperrors "github.com/kevinwu530/querybase/pkg/errors"
)

const (
	apiKeyMaskWidth  = 8
	apiKeyRevealEdge = 4
	minimumAPIKeyLen = 10
)

// ErrAPIKeyNotFound is returned for unknown keys and for keys owned by a
// different user; the two cases are indistinguishable to the caller.
var ErrAPIKeyNotFound = apperrors.New("API_KEY_NOT_FOUND", "API key not found", http.StatusNotFound)

// APIKeyService stores per-user AI provider credentials encrypted at rest.
// Plaintext keys exist only within the lifetime of a single call.
type APIKeyService struct {
	db           *gorm.DB
	crypto       *vault.Crypto
	auditService *AuditService
	now          func() time.Time
}

// NewAPIKeyService constructs an APIKeyService backed by the vault cipher.
func NewAPIKeyService(db *gorm.DB, crypto *vault.Crypto, auditService *AuditService) (*APIKeyService, error) {
	if db == nil {
		return nil, errors.New("api key service: db is required")
	}
	if crypto == nil {
		return nil, errors.New("api key service: crypto is required")
	}
	return &APIKeyService{
		db:           db,
		crypto:       crypto,
		auditService: auditService,
		now:          time.Now,
	}, nil
}

// APIKeySummary is the masked listing form; plaintext never leaves the vault
// through this type.
type APIKeySummary struct {
	ID         string                `json:"id"`
	Provider   models.APIKeyProvider `json:"provider"`
	Name       string                `json:"name"`
	MaskedKey  string                `json:"masked_key"`
	IsActive   bool                  `json:"is_active"`
	LastUsedAt *time.Time            `json:"last_used_at,omitempty"`
	UsageCount int                   `json:"usage_count"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// UpsertAPIKeyInput carries a new or replacement credential.
type UpsertAPIKeyInput struct {
	Provider models.APIKeyProvider
	Name     string
	Key      string
}

// Upsert stores a credential for (user, provider), replacing any existing row
// in place so the unique index is never violated and the row id is stable.
func (s *APIKeyService) Upsert(ctx context.Context, userID string, input UpsertAPIKeyInput) (*APIKeySummary, error) {
	ctx = ensureContext(ctx)

	if err := validateAPIKeyInput(input); err != nil {
		return nil, err
	}

	encrypted, err := s.crypto.Encrypt([]byte(input.Key))
	if err != nil {
		return nil, fmt.Errorf("api key service: encrypt key: %w", err)
	}
	hash := hashAPIKey(input.Key)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fmt.Sprintf("%s key", input.Provider)
	}

	var record models.UserAPIKey
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND provider = ?", userID, input.Provider).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.UserAPIKey{
				UserID:       userID,
				Provider:     input.Provider,
				Name:         name,
				EncryptedKey: encrypted,
				KeyHash:      hash,
				IsActive:     true,
			}
			return tx.Create(&record).Error
		case err != nil:
			return err
		}

		record.Name = name
		record.EncryptedKey = encrypted
		record.KeyHash = hash
		record.IsActive = true
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("api key service: upsert key: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "apikey.upsert",
		Resource: string(input.Provider),
		Result:   "success",
	})

	summary := s.summarize(&record)
	return &summary, nil
}

// List returns the caller's credentials with masked key material.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]APIKeySummary, error) {
	ctx = ensureContext(ctx)

	var records []models.UserAPIKey
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("api key service: list keys: %w", err)
	}

	summaries := make([]APIKeySummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, s.summarize(&records[i]))
	}
	return summaries, nil
}

// Get returns one masked credential owned by the caller.
func (s *APIKeyService) Get(ctx context.Context, userID, id string) (*APIKeySummary, error) {
	ctx = ensureContext(ctx)

	record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(record)
	return &summary, nil
}

// UpdateAPIKeyInput carries mutable credential metadata. Nil fields are left
// untouched.
type UpdateAPIKeyInput struct {
	Name     *string
	IsActive *bool
}

// Update patches credential metadata without touching key material.
func (s *APIKeyService) Update(ctx context.Context, userID, id string, input UpdateAPIKeyInput) (*APIKeySummary, error) {
	ctx = ensureContext(ctx)

	record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidation([]apperrors.FieldError{{Field: "name", Message: "must not be empty"}})
		}
		updates["name"] = name
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		summary := s.summarize(record)
		return &summary, nil
	}

	if err := s.db.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("api key service: update key: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "apikey.update",
		Resource: string(record.Provider),
		Result:   "success",
	})

	summary := s.summarize(record)
	return &summary, nil
}

// Delete removes a credential. Keys owned by another user report not found.
func (s *APIKeyService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.UserAPIKey{})
	if result.Error != nil {
		return fmt.Errorf("api key service: delete key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "apikey.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

// Resolve decrypts the caller's active credential for a provider and records
// the use. Intended for per-request resolution; the plaintext is never cached.
func (s *APIKeyService) Resolve(ctx context.Context, userID string, provider models.APIKeyProvider) (string, error) {
	ctx = ensureContext(ctx)

	var record models.UserAPIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND is_active = ?", userID, provider, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAPIKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("api key service: load key: %w", err)
	}

	plaintext, err := s.crypto.Decrypt(record.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("api key service: decrypt key: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&record).
		Updates(map[string]any{
			"last_used_at": now,
			"usage_count":  gorm.Expr("usage_count + 1"),
		}).Error; err != nil {
		return "", fmt.Errorf("api key service: record usage: %w", err)
	}

	return string(plaintext), nil
}

// Reveal returns the key edges with the middle masked, enough for a user to
// recognise a credential without exposing it.
func (s *APIKeyService) Reveal(ctx context.Context, userID, id string) (string, error) {
	ctx = ensureContext(ctx)

	record, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return "", err
	}

	plaintext, err := s.crypto.Decrypt(record.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("api key service: decrypt key: %w", err)
	}

	return maskKeyEdges(string(plaintext)), nil
}

func (s *APIKeyService) loadOwned(ctx context.Context, userID, id string) (*models.UserAPIKey, error) {
	var record models.UserAPIKey
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("api key service: load key: %w", err)
	}
	return &record, nil
}

func (s *APIKeyService) summarize(record *models.UserAPIKey) APIKeySummary {
	return APIKeySummary{
		ID:         record.ID,
		Provider:   record.Provider,
		Name:       record.Name,
		MaskedKey:  strings.Repeat("*", apiKeyMaskWidth),
		IsActive:   record.IsActive,
		LastUsedAt: record.LastUsedAt,
		UsageCount: record.UsageCount,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func validateAPIKeyInput(input UpsertAPIKeyInput) error {
	var details []apperrors.FieldError
	if !input.Provider.Valid() {
		details = append(details, apperrors.FieldError{Field: "provider", Message: "must be one of gemini, openai, anthropic"})
	}
	if len(strings.TrimSpace(input.Key)) < minimumAPIKeyLen {
		details = append(details, apperrors.FieldError{Field: "key", Message: fmt.Sprintf("must be at least %d characters", minimumAPIKeyLen)})
	}
	if len(details) > 0 {
		return apperrors.NewValidation(details)
	}
	return nil
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// maskKeyEdges keeps the first and last few characters visible.
func maskKeyEdges(key string) string {
	if len(key) <= apiKeyRevealEdge*2 {
		return strings.Repeat("*", len(key))
	}
	return key[:apiKeyRevealEdge] + strings.Repeat("*", apiKeyMaskWidth) + key[len(key)-apiKeyRevealEdge:]
}
