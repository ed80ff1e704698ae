// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"service-booking-backend/config"
	"service-booking-backend/internal/db"
)

// Open returns a migrated SQLite database in the test's temp dir. It runs on
// a single connection, so concurrent transactions queue instead of failing
// with "database is locked". Tests on it never interleave two transactions;
// contention on a pool is covered by the postgres tagged store tests.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking.db")
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("%s?_busy_timeout=5000", path),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return gormDB
}
