package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sitegen/internal/database"
)

func newStore(t *testing.T) *database.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return database.NewStore(db)
}

func TestApply(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.UpsertProfile(ctx, "6f2c1a9e-2b3d-4c5e-8f90-1a2b3c4d5e6f", "Ada", "", 10)
	require.NoError(t, err)

	profile, err := apply(ctx, store, "6f2c1a9e-2b3d-4c5e-8f90-1a2b3c4d5e6f", 50, database.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 50, profile.Credits)
	assert.Equal(t, database.RoleAdmin, profile.Role)

	profile, err = apply(ctx, store, "6f2c1a9e-2b3d-4c5e-8f90-1a2b3c4d5e6f", -1, database.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 50, profile.Credits, "negative credits flag leaves balance alone")
	assert.Equal(t, database.RoleUser, profile.Role)

	_, err = apply(ctx, store, "6f2c1a9e-2b3d-4c5e-8f90-1a2b3c4d5e6f", -1, "root")
	assert.Error(t, err)

	_, err = apply(ctx, store, "00000000-0000-0000-0000-000000000000", 5, "")
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DATABASE_HOST", "")
	t.Setenv("DATABASE_PORT", "")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("", 0, "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "postgres", cfg.Name)
	assert.Equal(t, "require", cfg.SSLMode)

	cfg, err = loadDatabaseConfig("db.internal", 6543, "sites", "", "", "disable")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "sites", cfg.Name)

	t.Setenv("POSTGRES_PASSWORD", "")
	_, err = loadDatabaseConfig("", 0, "", "", "", "")
	assert.Error(t, err)

	t.Setenv("DATABASE_PORT", "not-a-port")
	_, err = loadDatabaseConfig("", 0, "", "", "secret", "")
	assert.ErrorContains(t, err, "DATABASE_PORT")
}
