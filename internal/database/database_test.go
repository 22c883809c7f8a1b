package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := NewDatabase(dbPath, WithLogLevel(logger.Silent))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestNewDatabase_Migrates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.True(t, db.DB.Migrator().HasTable(&entities.User{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.DurableRecord{}))
	assert.True(t, db.DB.Migrator().HasTable(&entities.AuditEvent{}))
	assert.NoError(t, db.Ping())
}

func TestDatabase_RepositoriesShareConnection(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.Users().Create(&entities.User{Email: "a@x.com"}))
	require.NoError(t, db.Durable().Set(ctx, storage.FavoritesKey("a@x.com"), "[]"))

	count, err := db.Users().Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	raw, found, err := db.Durable().Get(ctx, storage.FavoritesKey("a@x.com"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", raw)
}

func TestDatabase_SurvivesReopen(t *testing.T) {
	dbPath := "./test_reopen.db"
	defer os.Remove(dbPath)
	ctx := context.Background()

	db, err := NewDatabase(dbPath, WithLogLevel(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, db.Durable().Set(ctx, storage.FavoritesKey("a@x.com"), `[{"id":"b1"}]`))
	require.NoError(t, db.Close())

	reopened, err := NewDatabase(dbPath, WithLogLevel(logger.Silent))
	require.NoError(t, err)
	defer reopened.Close()

	raw, found, err := reopened.Durable().Get(ctx, storage.FavoritesKey("a@x.com"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"b1"}]`, raw)
}
