// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"path/filepath" // Temp file path
	"testing"       // Test helpers

	"paywallet/internal/db" // Database setup

	"gorm.io/gorm" // GORM ORM library
)

// New returns a migrated SQLite database living in t.TempDir
func New(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "paywallet.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
