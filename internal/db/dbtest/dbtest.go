// Package dbtest opens throwaway in-memory SQLite databases with the
// service schema for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chinook-go-api/internal/config"
	"chinook-go-api/internal/db"
	"chinook-go-api/internal/logging"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := config.Config{
		DBDriver:    config.DriverSQLite,
		DatabaseURL: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}

	database, err := db.Connect(cfg, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return database
}
