package audit

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/bookfinder/internal/database/audit"
	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/favorites"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		Identity:  "reader@example.com",
		EventType: entities.AuditEventExport,
		Action:    "favorites_export",
		Status:    entities.AuditStatusSuccess,
	}
	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "favorites_export", saved.Action)
}

func TestService_LogImport(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful import", func(t *testing.T) {
		result := favorites.ImportResult{Identities: 2, Added: 5, Skipped: []string{"theme"}}
		svc.LogImport("admin@example.com", "10.0.0.1", result, "abc.json", nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND status = ?", "favorites_import", entities.AuditStatusSuccess).First(&event).Error)
		assert.Equal(t, "admin@example.com", event.Identity)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
		assert.Equal(t, "Imported 5 favorites for 2 users", event.Description)
		assert.JSONEq(t, `{"identities":2,"added":5,"skipped":1,"archive":"abc.json"}`, event.Metadata)
	})

	t.Run("failed import", func(t *testing.T) {
		svc.LogImport("admin@example.com", "", favorites.ImportResult{}, "", errors.New("disk full"))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("status = ?", entities.AuditStatusFailed).First(&event).Error)
		assert.Equal(t, "disk full", event.ErrorMsg)
	})
}

func TestService_LogExportSnapshotAuth(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.LogExport("reader@example.com", "", 1, nil)
	svc.LogSnapshot("schedule", "/tmp/favorites-1.json", nil)
	svc.LogAuth("reader@example.com", "login", "127.0.0.1", false)
	svc.Wait()

	events, total, err := svc.Events(auditRepo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	byAction := map[string]entities.AuditEvent{}
	for _, e := range events {
		byAction[e.Action] = e
	}
	assert.Equal(t, entities.AuditEventExport, byAction["favorites_export"].EventType)
	assert.Equal(t, entities.AuditEventSnapshot, byAction["snapshot_schedule"].EventType)
	assert.Empty(t, byAction["snapshot_schedule"].Identity)
	assert.Equal(t, entities.AuditStatusFailed, byAction["login"].Status)

	_, total, err = svc.Events(auditRepo.Filter{Identity: "reader@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "old", CreatedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "recent", CreatedAt: now.AddDate(0, 0, -1)}))

	deleted, err := svc.DeleteOldEvents(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestService_Nil(t *testing.T) {
	var svc *Service

	assert.NotPanics(t, func() {
		svc.LogAuth("a@example.com", "login", "", true)
		svc.LogSnapshot("cli", "", nil)
		svc.Wait()
	})
	assert.NoError(t, svc.Log(&entities.AuditEvent{}))
	events, total, err := svc.Events(auditRepo.Filter{})
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, total)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))

	long := truncate(strings.Repeat("x", 20), 10)
	assert.Len(t, long, 10)
	assert.True(t, strings.HasSuffix(long, "..."))
}
