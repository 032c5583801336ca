package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/kevinwu530/querybase/internal/database/testutil"
	"github.com/kevinwu530/querybase/internal/models"
	"github.com/kevinwu530/querybase/internal/services"
)

func seedInvitation(t *testing.T, db *gorm.DB, workspaceID, email, hash string, expiresAt time.Time) models.WorkspaceInvitation {
	t.Helper()
	invitation := models.WorkspaceInvitation{
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        models.RoleViewer,
		TokenHash:   hash,
		Status:      models.InvitationPending,
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, db.Create(&invitation).Error)
	return invitation
}

func TestCleanupCacheEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2025, 2, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "fresh",
		Value:     []byte("y"),
		ExpiresAt: now.Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:   "forever",
		Value: []byte("z"),
	}).Error)

	removed, err := CleanupCacheEntries(context.Background(), db, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	current := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	memberSvc, err := services.NewMemberService(db, auditSvc, nil,
		services.WithMemberClock(func() time.Time { return current }))
	require.NoError(t, err)

	workspace := models.Workspace{Name: "Analytics", Slug: "analytics"}
	require.NoError(t, db.Create(&workspace).Error)

	seedInvitation(t, db, workspace.ID, "stale@example.com", "hash-stale", current.Add(-time.Hour))
	fresh := seedInvitation(t, db, workspace.ID, "fresh@example.com", "hash-fresh", current.Add(time.Hour))

	// Audit row older than the retention window.
	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Action: "test.action",
		Result: "success",
	}))
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("1 = 1").
		Update("created_at", current.AddDate(0, 0, -120)).Error)

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: current.Add(-time.Minute),
	}).Error)

	cleaner := NewCleaner(db, memberSvc, auditSvc,
		WithNow(func() time.Time { return current }),
		WithAuditRetentionDays(90),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var expiredCount int64
	require.NoError(t, db.Model(&models.WorkspaceInvitation{}).
		Where("status = ?", models.InvitationExpired).
		Count(&expiredCount).Error)
	require.EqualValues(t, 1, expiredCount)

	var freshStored models.WorkspaceInvitation
	require.NoError(t, db.First(&freshStored, "id = ?", fresh.ID).Error)
	require.Equal(t, models.InvitationPending, freshStored.Status)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Zero(t, auditCount)

	var cacheCount int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&cacheCount).Error)
	require.Zero(t, cacheCount)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	memberSvc, err := services.NewMemberService(db, auditSvc, nil)
	require.NoError(t, err)

	cleaner := NewCleaner(db, memberSvc, auditSvc)
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cleaner did not stop in time")
	}
}
