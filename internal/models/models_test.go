package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkspaceRoleValid(t *testing.T) {
	for _, role := range []WorkspaceRole{RoleOwner, RoleAdmin, RoleEditor, RoleViewer} {
		require.True(t, role.Valid(), "role %q should be valid", role)
	}
	require.False(t, WorkspaceRole("superuser").Valid())
	require.False(t, WorkspaceRole("").Valid())
}

func TestMessageRoleValid(t *testing.T) {
	require.True(t, MessageRoleUser.Valid())
	require.True(t, MessageRoleAssistant.Valid())
	require.True(t, MessageRoleSystem.Valid())
	require.False(t, MessageRole("bot").Valid())
}

func TestAPIKeyProviderValid(t *testing.T) {
	require.True(t, ProviderGemini.Valid())
	require.True(t, ProviderOpenAI.Valid())
	require.True(t, ProviderAnthropic.Valid())
	require.False(t, APIKeyProvider("mistral").Valid())
}

func TestConversationDeleted(t *testing.T) {
	var conv *Conversation
	require.False(t, conv.Deleted())

	conv = &Conversation{}
	require.False(t, conv.Deleted())

	now := conv.CreatedAt
	conv.DeletedAt = &now
	require.True(t, conv.Deleted())
}
