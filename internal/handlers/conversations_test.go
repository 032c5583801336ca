package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func conversationTestRouter(env *handlerEnv, userID string) *gin.Engine {
	handler := NewConversationHandler(env.conversations)

	router := gin.New()
	router.Use(asUser(userID))
	router.GET("/api/workspaces/:id/conversations", handler.List)
	router.POST("/api/workspaces/:id/conversations", handler.Create)
	router.GET("/api/conversations/:id", handler.Get)
	router.DELETE("/api/conversations/:id", handler.Delete)
	router.GET("/api/conversations/:id/messages", handler.ListMessages)
	router.POST("/api/conversations/:id/messages", handler.AppendMessage)
	return router
}

func TestCreateConversationEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
		"title":         "Revenue questions",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]any)
	require.Equal(t, "Revenue questions", data["title"])
	require.Equal(t, false, data["is_active"])
	require.Equal(t, connection.ID, data["connection_id"])
}

func TestCreateConversationUnknownConnection(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": "5f0c2b5e-37f7-4db7-9f64-3f4c9f6a1b2c",
	})

	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.Equal(t, "CONNECTION_NOT_FOUND", errorCode(t, rec))
}

func TestAppendMessagePromotesConversation(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversationID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/api/conversations/"+conversationID+"/messages", gin.H{
		"role":    "user",
		"content": "How many orders shipped last week?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decodeBody(t, rec)["data"].(map[string]any)
	message := data["message"].(map[string]any)
	conversation := data["conversation"].(map[string]any)
	require.Equal(t, "user", message["role"])
	require.Equal(t, true, conversation["is_active"])
	require.Equal(t, float64(1), conversation["message_count"])
}

func TestAppendMessageValidationCollectsFieldErrors(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversationID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/api/conversations/"+conversationID+"/messages", gin.H{
		"role":       "robot",
		"content":    "",
		"confidence": 250,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	payload := decodeBody(t, rec)
	errInfo := payload["error"].(map[string]any)
	require.Equal(t, "VALIDATION_FAILED", errInfo["code"])
	require.Len(t, errInfo["details"].([]any), 3)
}

func TestAppendMessageForbiddenForOutsider(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	outsider := env.seedUser(t, "outsider", "outsider@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	ownerRouter := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, ownerRouter, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversationID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	outsiderRouter := conversationTestRouter(env, outsider.ID)
	rec = doJSON(t, outsiderRouter, http.MethodPost, "/api/conversations/"+conversationID+"/messages", gin.H{
		"role":    "user",
		"content": "let me in",
	})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestDeleteConversationThenGetReturnsNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversationID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodDelete, "/api/conversations/"+conversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/conversations/"+conversationID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.Equal(t, "CONVERSATION_NOT_FOUND", errorCode(t, rec))
}

func TestListMessagesEndpointOrdersOldestFirst(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)
	connection := env.seedConnection(t, workspace.ID, owner.ID)

	router := conversationTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/conversations", gin.H{
		"connection_id": connection.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conversationID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	for _, content := range []string{"first", "second"} {
		rec = doJSON(t, router, http.MethodPost, "/api/conversations/"+conversationID+"/messages", gin.H{
			"role":    "user",
			"content": content,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/conversations/"+conversationID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	messages := decodeBody(t, rec)["data"].([]any)
	require.Len(t, messages, 2)
	require.Equal(t, "first", messages[0].(map[string]any)["content"])
	require.Equal(t, "second", messages[1].(map[string]any)["content"])
}
