package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func connectionTestRouter(env *handlerEnv, userID string) *gin.Engine {
	handler := NewConnectionHandler(env.connections)

	router := gin.New()
	router.Use(asUser(userID))
	router.GET("/api/workspaces/:id/connections", handler.List)
	router.POST("/api/workspaces/:id/connections", handler.Create)
	return router
}

func TestCreateConnectionEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)

	router := connectionTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/connections", gin.H{
		"name":     "Warehouse",
		"driver":   "postgres",
		"host":     "db.internal",
		"port":     5432,
		"database": "analytics",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]any)
	require.Equal(t, "Warehouse", data["name"])
	require.Equal(t, "postgres", data["driver"])

	rec = doJSON(t, router, http.MethodGet, "/api/workspaces/"+workspace.ID+"/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decodeBody(t, rec)["data"].([]any), 1)
}

func TestCreateConnectionEndpointRejectsDuplicateName(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)

	router := connectionTestRouter(env, owner.ID)
	body := gin.H{"name": "Warehouse", "driver": "postgres"}

	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/connections", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Name comparison ignores case within a workspace.
	rec = doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/connections", gin.H{
		"name":   "warehouse",
		"driver": "mysql",
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestCreateConnectionEndpointRejectsUnknownDriver(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com")
	workspace := env.seedWorkspace(t, "Analytics", "analytics", owner.ID)

	router := connectionTestRouter(env, owner.ID)
	rec := doJSON(t, router, http.MethodPost, "/api/workspaces/"+workspace.ID+"/connections", gin.H{
		"name":   "Warehouse",
		"driver": "oracle",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
