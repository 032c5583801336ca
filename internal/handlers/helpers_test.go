package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/database/testutil"
	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/permissions"
	"github.com/kevinwu530/querybase/internal/services"
	"github.com/kevinwu530/querybase/internal/vault"
	"github.com/kevinwu530/querybase/pkg/mail"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, message mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

type handlerEnv struct {
	db            *gorm.DB
	checker       *permissions.Checker
	mailer        *recordingMailer
	workspaces    *services.WorkspaceService
	members       *services.MemberService
	connections   *services.ConnectionService
	conversations *services.ConversationService
	apiKeys       *services.APIKeyService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	workspaces, err := services.NewWorkspaceService(db, auditSvc)
	require.NoError(t, err)
	mailer := &recordingMailer{}
	members, err := services.NewMemberService(db, auditSvc, mailer,
		services.WithInviteBaseURL("https://querybase.test"))
	require.NoError(t, err)
	connections, err := services.NewConnectionService(db, auditSvc)
	require.NoError(t, err)
	conversations, err := services.NewConversationService(db, auditSvc, checker)
	require.NoError(t, err)

	crypto, err := vault.NewCrypto([]byte("handler-test-master-key"))
	require.NoError(t, err)
	apiKeys, err := services.NewAPIKeyService(db, crypto, auditSvc)
	require.NoError(t, err)

	return &handlerEnv{
		db:            db,
		checker:       checker,
		mailer:        mailer,
		workspaces:    workspaces,
		members:       members,
		connections:   connections,
		conversations: conversations,
		apiKeys:       apiKeys,
	}
}

// asUser returns middleware that injects the given user id, standing in for
// the JWT layer.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, userID)
		c.Next()
	}
}

func (env *handlerEnv) seedUser(t *testing.T, username, email string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: email, IsActive: true}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env *handlerEnv) seedWorkspace(t *testing.T, name, slug, ownerID string) *models.Workspace {
	t.Helper()
	workspace := &models.Workspace{Name: name, Slug: slug, CreatedByID: ownerID}
	require.NoError(t, env.db.Create(workspace).Error)
	require.NoError(t, env.db.Create(&models.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      ownerID,
		Role:        models.RoleOwner,
		IsActive:    true,
	}).Error)
	return workspace
}

func (env *handlerEnv) seedConnection(t *testing.T, workspaceID, createdByID string) *models.Connection {
	t.Helper()
	connection := &models.Connection{
		WorkspaceID: workspaceID,
		Name:        "warehouse",
		Driver:      "postgres",
		CreatedByID: createdByID,
		IsActive:    true,
	}
	require.NoError(t, env.db.Create(connection).Error)
	return connection
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	payload := decodeBody(t, rec)
	errInfo, ok := payload["error"].(map[string]any)
	require.True(t, ok, "expected error payload, got %s", rec.Body.String())
	code, _ := errInfo["code"].(string)
	return code
}
