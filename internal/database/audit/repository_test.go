package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookfinder/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		Identity:    "reader@example.com",
		EventType:   entities.AuditEventImport,
		Action:      "favorites_import",
		Description: "Imported 3 favorites",
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_List(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		identity := "a@example.com"
		eventType := entities.AuditEventExport
		if i%3 == 0 {
			identity = "b@example.com"
			eventType = entities.AuditEventAuth
		}
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			Identity:  identity,
			EventType: eventType,
			Action:    "test",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("all events newest first", func(t *testing.T) {
		events, total, err := repo.List(Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		require.Len(t, events, 12)
		assert.True(t, events[0].CreatedAt.After(events[11].CreatedAt))
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.List(Filter{Limit: 5, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.Len(t, events, 2)
	})

	t.Run("by identity", func(t *testing.T) {
		events, total, err := repo.List(Filter{Identity: "b@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		for _, e := range events {
			assert.Equal(t, "b@example.com", e.Identity)
		}
	})

	t.Run("by type", func(t *testing.T) {
		_, total, err := repo.List(Filter{EventType: entities.AuditEventExport})
		require.NoError(t, err)
		assert.Equal(t, int64(8), total)
	})

	t.Run("negative offset is clamped", func(t *testing.T) {
		events, _, err := repo.List(Filter{Limit: 3, Offset: -4})
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "new", CreatedAt: now}))

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.List(Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new", events[0].Action)
}
