package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionCreateAndList(t *testing.T) {
	db := openServiceTestDB(t)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewConnectionService(db, auditSvc)
	require.NoError(t, err)

	ctx := context.Background()
	owner := seedUser(t, db, "owner", "owner@example.com")
	workspace := seedWorkspace(t, db, "Analytics", "analytics", owner.ID)

	created, err := svc.Create(ctx, CreateConnectionInput{
		WorkspaceID: workspace.ID,
		Name:        "Warehouse",
		Driver:      "Postgres",
		Host:        "db.internal",
		Port:        5432,
		Database:    "analytics",
		CreatedByID: owner.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "postgres", created.Driver)

	_, err = svc.Create(ctx, CreateConnectionInput{
		WorkspaceID: workspace.ID,
		Name:        "warehouse",
		Driver:      "mysql",
		CreatedByID: owner.ID,
	})
	require.ErrorIs(t, err, ErrConnectionNameTaken)

	connections, err := svc.List(ctx, workspace.ID)
	require.NoError(t, err)
	require.Len(t, connections, 1)

	found, err := svc.Get(ctx, workspace.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.Get(ctx, workspace.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestConnectionCreateValidation(t *testing.T) {
	db := openServiceTestDB(t)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewConnectionService(db, auditSvc)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateConnectionInput{
		WorkspaceID: "ws",
		Name:        " ",
		Driver:      "",
		Port:        70000,
	})
	require.Error(t, err)
}
