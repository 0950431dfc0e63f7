// Package dbtest opens throwaway in-memory databases with the production schema for tests.
package dbtest

import (
	"io"
	"testing"

	"pipeline-crm/internal/database"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DSN keeps foreign keys on for every connection the driver opens.
const DSN = "file::memory:?_pragma=foreign_keys(1)"

// Open returns a fresh schema-complete database closed at the end of the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Connect(sqlite.Open(DSN), 1, QuietLogger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	// each connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// QuietLogger discards output.
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
