package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func apiKeyTestRouter(env *handlerEnv, userID string) *gin.Engine {
	handler := NewAPIKeyHandler(env.apiKeys)

	router := gin.New()
	router.Use(asUser(userID))
	router.GET("/api/settings/api-keys", handler.List)
	router.POST("/api/settings/api-keys", handler.Upsert)
	router.GET("/api/settings/api-keys/:id/reveal", handler.Reveal)
	router.PATCH("/api/settings/api-keys/:id", handler.Update)
	router.DELETE("/api/settings/api-keys/:id", handler.Delete)
	return router
}

func TestUpsertAPIKeyEndpointReplacesInPlace(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "user", "user@example.com")

	router := apiKeyTestRouter(env, user.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "openai",
		"key":      "sk-first-key-0001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	firstID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "openai",
		"key":      "sk-second-key-0002",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	secondID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	// Same provider rotates the stored secret without minting a new row.
	require.Equal(t, firstID, secondID)

	rec = doJSON(t, router, http.MethodGet, "/api/settings/api-keys", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	keys := decodeBody(t, rec)["data"].([]any)
	require.Len(t, keys, 1)
	require.Equal(t, "********", keys[0].(map[string]any)["masked_key"])
}

func TestUpsertAPIKeyEndpointRejectsUnknownProvider(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "user", "user@example.com")

	router := apiKeyTestRouter(env, user.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "acme",
		"key":      "sk-some-key-0001",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestRevealAPIKeyEndpointMasksMiddle(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "user", "user@example.com")

	router := apiKeyTestRouter(env, user.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "gemini",
		"key":      "sk-abcdef1234567890",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	keyID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/settings/api-keys/"+keyID+"/reveal", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	revealed := decodeBody(t, rec)["data"].(map[string]any)["key"].(string)
	require.True(t, len(revealed) > 8)
	require.Equal(t, "sk-a", revealed[:4])
	require.Equal(t, "7890", revealed[len(revealed)-4:])
	require.NotContains(t, revealed, "abcdef123456")
}

func TestAPIKeyEndpointsScopedToOwner(t *testing.T) {
	env := newHandlerEnv(t)
	alice := env.seedUser(t, "alice", "alice@example.com")
	mallory := env.seedUser(t, "mallory", "mallory@example.com")

	aliceRouter := apiKeyTestRouter(env, alice.ID)
	rec := doJSON(t, aliceRouter, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "anthropic",
		"key":      "sk-alice-secret-key",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	keyID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	malloryRouter := apiKeyTestRouter(env, mallory.ID)
	for _, attempt := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/settings/api-keys/" + keyID + "/reveal", nil},
		{http.MethodPatch, "/api/settings/api-keys/" + keyID, gin.H{"is_active": false}},
		{http.MethodDelete, "/api/settings/api-keys/" + keyID, nil},
	} {
		rec = doJSON(t, malloryRouter, attempt.method, attempt.path, attempt.body)
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s: %s", attempt.method, attempt.path, rec.Body.String())
		require.Equal(t, "API_KEY_NOT_FOUND", errorCode(t, rec))
	}
}

func TestUpdateAPIKeyEndpointRequiresFields(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "user", "user@example.com")

	router := apiKeyTestRouter(env, user.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/settings/api-keys", gin.H{
		"provider": "openai",
		"key":      "sk-rotate-me-0001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	keyID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodPatch, "/api/settings/api-keys/"+keyID, gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPatch, "/api/settings/api-keys/"+keyID, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, false, decodeBody(t, rec)["data"].(map[string]any)["is_active"])
}
