package testutil

import (
	"testing"

	"github.com/caesium-cloud/kanban/pkg/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenTestDB returns an in-memory sqlite DB with migrations applied.
// The connection is closed when the test finishes.
func OpenTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := db.Open(db.TypeSQLite, dsn)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	// a single connection serializes writers so shared-cache
	// table locks never surface as test failures
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(conn); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	tb.Cleanup(func() {
		_ = db.Close(conn)
	})

	return conn
}

// AssertCount asserts a count for the provided model using the supplied DB.
func AssertCount(tb testing.TB, conn *gorm.DB, model any, expected int64) {
	tb.Helper()

	var count int64
	if err := conn.Model(model).Count(&count).Error; err != nil {
		tb.Fatalf("count: %v", err)
	}
	if count != expected {
		tb.Fatalf("expected %d records, got %d", expected, count)
	}
}
